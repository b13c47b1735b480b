// Package starknetrpc reads state from a Starknet JSON-RPC node.
package starknetrpc

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/forking"
	"github.com/NethermindEth/cheatnet/starknet"
	"github.com/NethermindEth/cheatnet/utils"
	"github.com/ethereum/go-ethereum/rpc"
)

// Starknet JSON-RPC error codes mapped to forking.ErrNotFound
const (
	codeContractNotFound  = 20
	codeClassHashNotFound = 28
)

var _ forking.Remote = (*Client)(nil)

type Backoff func(wait time.Duration) time.Duration

type Client struct {
	url        string
	rpc        *rpc.Client
	backoff    Backoff
	maxRetries int
	maxWait    time.Duration
	minWait    time.Duration
	timeout    time.Duration
	log        utils.SimpleLogger
	listener   EventListener
}

func (c *Client) WithListener(l EventListener) *Client {
	c.listener = l
	return c
}

func (c *Client) WithBackoff(b Backoff) *Client {
	c.backoff = b
	return c
}

func (c *Client) WithMaxRetries(num int) *Client {
	c.maxRetries = num
	return c
}

func (c *Client) WithMaxWait(d time.Duration) *Client {
	c.maxWait = d
	return c
}

func (c *Client) WithMinWait(d time.Duration) *Client {
	c.minWait = d
	return c
}

// WithTimeout bounds each attempt of a request
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

func (c *Client) WithLogger(log utils.SimpleLogger) *Client {
	c.log = log
	return c
}

func ExponentialBackoff(wait time.Duration) time.Duration {
	return wait * 2
}

func NopBackoff(d time.Duration) time.Duration {
	return 0
}

// Dial connects to the node at url
func Dial(ctx context.Context, url string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Client{
		url:        url,
		rpc:        rpcClient,
		backoff:    ExponentialBackoff,
		maxRetries: 3,
		maxWait:    2 * time.Second,
		minWait:    250 * time.Millisecond,
		timeout:    10 * time.Second,
		log:        utils.NewNopZapLogger(),
		listener:   &SelectiveListener{},
	}, nil
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) Close() {
	c.rpc.Close()
}

// call performs method, retrying transient failures with backoff
func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	var err error
	wait := time.Duration(0)
	for attempt := range c.maxRetries + 1 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			reqTimer := time.Now()
			err = c.attempt(ctx, result, method, args...)
			c.listener.OnRequest(method, time.Since(reqTimer), err)
			if err == nil {
				return nil
			}
			if err = classify(err); !retryable(ctx, err) {
				return err
			}

			if wait < c.minWait {
				wait = c.minWait
			} else {
				wait = min(c.backoff(wait), c.maxWait)
			}
			c.log.Warnw("Failed query to node, retrying...",
				"method", method, "attempt", attempt+1, "retryAfter", wait.String(), "err", err)
		}
	}
	return err
}

func (c *Client) attempt(ctx context.Context, result any, method string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.rpc.CallContext(ctx, result, method, args...)
}

func classify(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case codeContractNotFound, codeClassHashNotFound:
			return errors.Join(forking.ErrNotFound, err)
		}
	}
	return err
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, forking.ErrNotFound) {
		return false
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError
	}
	// node side errors are deterministic, transport errors are not
	var rpcErr rpc.Error
	return !errors.As(err, &rpcErr)
}

func (c *Client) Nonce(ctx context.Context, block starknet.BlockID, addr *felt.Felt) (*felt.Felt, error) {
	nonce := new(felt.Felt)
	if err := c.call(ctx, nonce, "starknet_getNonce", block, addr); err != nil {
		return nil, err
	}
	return nonce, nil
}

func (c *Client) ClassHashAt(ctx context.Context, block starknet.BlockID, addr *felt.Felt) (*felt.Felt, error) {
	classHash := new(felt.Felt)
	if err := c.call(ctx, classHash, "starknet_getClassHashAt", block, addr); err != nil {
		return nil, err
	}
	return classHash, nil
}

func (c *Client) StorageAt(ctx context.Context, block starknet.BlockID, addr, key *felt.Felt) (*felt.Felt, error) {
	value := new(felt.Felt)
	if err := c.call(ctx, value, "starknet_getStorageAt", addr, key, block); err != nil {
		return nil, err
	}
	return value, nil
}

func (c *Client) Class(ctx context.Context, block starknet.BlockID, classHash *felt.Felt) (*starknet.ClassDefinition, error) {
	def := new(starknet.ClassDefinition)
	if err := c.call(ctx, def, "starknet_getClass", block, classHash); err != nil {
		return nil, err
	}
	return def, nil
}

func (c *Client) BlockHeader(ctx context.Context, block starknet.BlockID) (*starknet.BlockHeader, error) {
	header := new(starknet.BlockHeader)
	if err := c.call(ctx, header, "starknet_getBlockWithTxHashes", block); err != nil {
		return nil, err
	}
	return header, nil
}
