// Package forking reads contract state from a live network at a fixed block
// and caches it for the lifetime of the process.
package forking

import (
	"context"
	"errors"
	"fmt"

	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/starknet"
)

var (
	// ErrNotFound is returned by a Remote for unknown contracts and classes
	ErrNotFound = errors.New("not found")
	// ErrRemoteTimeout aborts the test that triggered the fetch
	ErrRemoteTimeout = errors.New("fork request timed out")
)

//go:generate mockgen -destination=../mocks/mock_remote.go -package=mocks github.com/NethermindEth/cheatnet/forking Remote

// Remote is a read-only view of a network at some block.
type Remote interface {
	Nonce(ctx context.Context, block starknet.BlockID, addr *felt.Felt) (*felt.Felt, error)
	ClassHashAt(ctx context.Context, block starknet.BlockID, addr *felt.Felt) (*felt.Felt, error)
	StorageAt(ctx context.Context, block starknet.BlockID, addr, key *felt.Felt) (*felt.Felt, error)
	Class(ctx context.Context, block starknet.BlockID, classHash *felt.Felt) (*starknet.ClassDefinition, error)
	BlockHeader(ctx context.Context, block starknet.BlockID) (*starknet.BlockHeader, error)
}

// ResolveBlock pins the "latest" tag to a block number so that every read
// of a fork observes the same snapshot.
func ResolveBlock(ctx context.Context, remote Remote, block starknet.BlockID) (starknet.BlockID, error) {
	if !block.Latest {
		return block, nil
	}
	header, err := remote.BlockHeader(ctx, block)
	if err != nil {
		return block, fmt.Errorf("resolve latest block: %w", err)
	}
	return starknet.BlockNumber(header.Number), nil
}
