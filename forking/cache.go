package forking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NethermindEth/cheatnet/adapters/sn2core"
	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/starknet"
	"github.com/NethermindEth/cheatnet/starknet/compiler"
	"github.com/NethermindEth/cheatnet/state"
	"github.com/NethermindEth/cheatnet/utils"
	"golang.org/x/sync/singleflight"
)

const DefaultTimeout = 30 * time.Second

// Cache holds everything read from one fork block. It is safe for
// concurrent use; each distinct query reaches the remote at most once.
type Cache struct {
	remote   Remote
	block    starknet.BlockID
	fork     string
	compiler compiler.Compiler
	store    *Store
	listener EventListener
	log      utils.SimpleLogger
	timeout  time.Duration

	mu      sync.RWMutex
	felts   map[Key]felt.Felt
	classes map[felt.Felt]*core.CompiledClass // nil for classes unknown to the remote
	header  *starknet.BlockHeader
	group   singleflight.Group
}

// NewCache returns a cache reading from remote at block. url names the fork
// in persisted keys.
func NewCache(remote Remote, url string, block starknet.BlockID) *Cache {
	log := utils.NewNopZapLogger()
	return &Cache{
		remote:   remote,
		block:    block,
		fork:     SanitizeURL(url),
		compiler: compiler.New(log),
		listener: &SelectiveListener{},
		log:      log,
		timeout:  DefaultTimeout,
		felts:    make(map[Key]felt.Felt),
		classes:  make(map[felt.Felt]*core.CompiledClass),
	}
}

// WithStore persists fetched entries. Ignored for the "latest" tag since
// its contents change over time.
func (c *Cache) WithStore(s *Store) *Cache {
	if !c.block.Latest {
		c.store = s
	}
	return c
}

func (c *Cache) WithCompiler(cc compiler.Compiler) *Cache {
	c.compiler = cc
	return c
}

func (c *Cache) WithListener(l EventListener) *Cache {
	c.listener = l
	return c
}

func (c *Cache) WithLogger(log utils.SimpleLogger) *Cache {
	c.log = log
	return c
}

func (c *Cache) WithTimeout(t time.Duration) *Cache {
	c.timeout = t
	return c
}

func (c *Cache) Block() starknet.BlockID {
	return c.block
}

func (c *Cache) key(kind Kind, addr, slot *felt.Felt) Key {
	k := Key{Fork: c.fork, Block: c.block.String(), Kind: kind}
	if addr != nil {
		k.Addr = *addr
	}
	if slot != nil {
		k.Slot = *slot
	}
	return k
}

// Nonce returns the nonce of addr, zero for unknown contracts
func (c *Cache) Nonce(ctx context.Context, addr *felt.Felt) (felt.Felt, error) {
	return c.feltQuery(ctx, c.key(KindNonce, addr, nil), func(ctx context.Context) (*felt.Felt, error) {
		return c.remote.Nonce(ctx, c.block, addr)
	})
}

// ClassHashAt returns the class hash of addr, zero for unknown contracts
func (c *Cache) ClassHashAt(ctx context.Context, addr *felt.Felt) (felt.Felt, error) {
	return c.feltQuery(ctx, c.key(KindClassHash, addr, nil), func(ctx context.Context) (*felt.Felt, error) {
		return c.remote.ClassHashAt(ctx, c.block, addr)
	})
}

// StorageAt returns the value at (addr, key), zero for unknown contracts
func (c *Cache) StorageAt(ctx context.Context, addr, key *felt.Felt) (felt.Felt, error) {
	return c.feltQuery(ctx, c.key(KindStorage, addr, key), func(ctx context.Context) (*felt.Felt, error) {
		return c.remote.StorageAt(ctx, c.block, addr, key)
	})
}

func (c *Cache) feltQuery(ctx context.Context, key Key, fetch func(context.Context) (*felt.Felt, error)) (felt.Felt, error) {
	c.mu.RLock()
	value, found := c.felts[key]
	c.mu.RUnlock()
	if found {
		c.listener.OnCacheHit(key.Kind, false)
		return value, nil
	}

	res, err, _ := c.group.Do(key.String(), func() (any, error) {
		c.mu.RLock()
		value, found := c.felts[key]
		c.mu.RUnlock()
		if found {
			return value, nil
		}

		if c.load(key, &value) {
			c.mu.Lock()
			c.felts[key] = value
			c.mu.Unlock()
			return value, nil
		}

		c.listener.OnCacheMiss(key.Kind)
		var fetched *felt.Felt
		err := c.request(ctx, key.Kind, func(ctx context.Context) (err error) {
			fetched, err = fetch(ctx)
			return err
		})
		switch {
		case errors.Is(err, ErrNotFound):
			value = felt.Zero
		case err != nil:
			return nil, err
		case fetched != nil:
			value = *fetched
		}

		c.mu.Lock()
		c.felts[key] = value
		c.mu.Unlock()
		c.save(key, value)
		return value, nil
	})
	if err != nil {
		return felt.Zero, err
	}
	return res.(felt.Felt), nil
}

// Class returns the compiled class declared under classHash. A class the
// remote does not know fails with state.ErrUndeclaredClass; a Cairo 0 class
// fails with compiler.ErrUnsupportedLegacyClass.
func (c *Cache) Class(ctx context.Context, classHash *felt.Felt) (*core.CompiledClass, error) {
	c.mu.RLock()
	class, found := c.classes[*classHash]
	c.mu.RUnlock()
	if found {
		c.listener.OnCacheHit(KindClass, false)
		return classOrUndeclared(class, classHash)
	}

	key := c.key(KindClass, classHash, nil)
	res, err, _ := c.group.Do(key.String(), func() (any, error) {
		c.mu.RLock()
		class, found := c.classes[*classHash]
		c.mu.RUnlock()
		if found {
			return class, nil
		}

		class = new(core.CompiledClass)
		if c.load(key, class) {
			c.mu.Lock()
			c.classes[*classHash] = class
			c.mu.Unlock()
			return class, nil
		}

		c.listener.OnCacheMiss(KindClass)
		var def *starknet.ClassDefinition
		err := c.request(ctx, KindClass, func(ctx context.Context) (err error) {
			def, err = c.remote.Class(ctx, c.block, classHash)
			return err
		})
		if errors.Is(err, ErrNotFound) {
			c.mu.Lock()
			c.classes[*classHash] = nil
			c.mu.Unlock()
			return (*core.CompiledClass)(nil), nil
		} else if err != nil {
			return nil, err
		}

		casm, err := compiler.CompileDefinition(ctx, c.compiler, def)
		if err != nil {
			return nil, fmt.Errorf("compile class %s: %w", classHash, err)
		}
		if class, err = sn2core.AdaptCompiledClass(casm); err != nil {
			return nil, fmt.Errorf("adapt class %s: %w", classHash, err)
		}

		c.mu.Lock()
		c.classes[*classHash] = class
		c.mu.Unlock()
		c.save(key, class)
		return class, nil
	})
	if err != nil {
		return nil, err
	}
	return classOrUndeclared(res.(*core.CompiledClass), classHash)
}

func classOrUndeclared(class *core.CompiledClass, classHash *felt.Felt) (*core.CompiledClass, error) {
	if class == nil {
		return nil, fmt.Errorf("%w: %s", state.ErrUndeclaredClass, classHash)
	}
	return class, nil
}

// BlockHeader returns the header of the fork block, fetched once
func (c *Cache) BlockHeader(ctx context.Context) (*starknet.BlockHeader, error) {
	c.mu.RLock()
	header := c.header
	c.mu.RUnlock()
	if header != nil {
		c.listener.OnCacheHit(KindBlockHeader, false)
		return header, nil
	}

	key := c.key(KindBlockHeader, nil, nil)
	res, err, _ := c.group.Do(key.String(), func() (any, error) {
		c.mu.RLock()
		header := c.header
		c.mu.RUnlock()
		if header != nil {
			return header, nil
		}

		header = new(starknet.BlockHeader)
		if !c.load(key, header) {
			c.listener.OnCacheMiss(KindBlockHeader)
			err := c.request(ctx, KindBlockHeader, func(ctx context.Context) (err error) {
				header, err = c.remote.BlockHeader(ctx, c.block)
				return err
			})
			if err != nil {
				return nil, fmt.Errorf("fetch block header: %w", err)
			}
			c.save(key, header)
		}

		c.mu.Lock()
		c.header = header
		c.mu.Unlock()
		return header, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*starknet.BlockHeader), nil
}

func (c *Cache) request(ctx context.Context, kind Kind, do func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := do(ctx)
	took := time.Since(start)
	c.listener.OnRemoteRequest(kind, took, err)
	c.log.Debugw("Fetched from fork", "kind", kind, "block", c.block, "took", took, "err", err)

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrRemoteTimeout, kind, c.timeout)
	}
	return err
}

// load reads a persisted entry. Store failures degrade to a miss.
func (c *Cache) load(key Key, v any) bool {
	if c.store == nil {
		return false
	}
	found, err := c.store.Get(key, v)
	if err != nil {
		c.log.Warnw("Failed to read fork cache", "key", key, "err", err)
		return false
	}
	if found {
		c.listener.OnCacheHit(key.Kind, true)
	}
	return found
}

func (c *Cache) save(key Key, v any) {
	if c.store == nil {
		return
	}
	if err := c.store.Put(key, v); err != nil {
		c.log.Warnw("Failed to write fork cache", "key", key, "err", err)
	}
}
