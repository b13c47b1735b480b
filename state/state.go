// Package state holds the contract state seen by the executor.
package state

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
)

var (
	ErrUndeclaredClass            = errors.New("class not declared")
	ErrClassAlreadyDeclared       = errors.New("class already declared")
	ErrUnavailableContractAddress = errors.New("unavailable contract address")
)

// Reader reads contract state. Unknown contracts and slots read as zero;
// unknown classes fail with ErrUndeclaredClass.
type Reader interface {
	ContractClassHash(addr *felt.Felt) (felt.Felt, error)
	ContractNonce(addr *felt.Felt) (felt.Felt, error)
	ContractStorage(addr, key *felt.Felt) (felt.Felt, error)
	Class(classHash *felt.Felt) (*core.CompiledClass, error)
	CompiledClassHash(classHash *felt.Felt) (felt.Felt, error)
}

type State interface {
	Reader

	SetStorage(addr, key, value *felt.Felt) error
	SetNonce(addr, nonce *felt.Felt) error
	SetClassHash(addr, classHash *felt.Felt) error
	DeclareClass(classHash, compiledClassHash *felt.Felt, class *core.CompiledClass) error
}

// IncrementNonce bumps the nonce of addr by one
func IncrementNonce(s State, addr *felt.Felt) error {
	nonce, err := s.ContractNonce(addr)
	if err != nil {
		return fmt.Errorf("get contract nonce: %w", err)
	}
	return s.SetNonce(addr, nonce.Add(&nonce, &felt.One))
}

// DeployContract binds classHash to addr. The address must be free and the
// class declared.
func DeployContract(s State, addr, classHash *felt.Felt) error {
	current, err := s.ContractClassHash(addr)
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return fmt.Errorf("%w: %s", ErrUnavailableContractAddress, addr)
	}
	if _, err = s.Class(classHash); err != nil {
		return err
	}
	return s.SetClassHash(addr, classHash)
}

// BlockHash reads the hash of block number from the block hash contract
func BlockHash(r Reader, number uint64) (felt.Felt, error) {
	key := felt.FromUint64(number)
	return r.ContractStorage(&core.BlockHashContractAddress, &key)
}

// SetBlockHash records the hash of block number in the block hash contract
func SetBlockHash(s State, number uint64, hash *felt.Felt) error {
	key := felt.FromUint64(number)
	return s.SetStorage(&core.BlockHashContractAddress, &key, hash)
}
