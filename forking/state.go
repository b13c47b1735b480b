package forking

import (
	"context"
	"errors"
	"fmt"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/state"
)

var _ state.State = (*State)(nil)

// State overlays local writes on a fork. Reads missing locally go to the
// shared Cache; nothing is ever written upstream.
type State struct {
	ctx   context.Context
	local *state.Dict
	cache *Cache
}

// NewState returns a State over cache. ctx bounds every remote fetch the
// state triggers.
func NewState(ctx context.Context, cache *Cache) *State {
	return &State{
		ctx:   ctx,
		local: state.NewDict(),
		cache: cache,
	}
}

func (s *State) Cache() *Cache {
	return s.cache
}

func (s *State) ContractClassHash(addr *felt.Felt) (felt.Felt, error) {
	if classHash, found := s.local.LookupClassHash(addr); found {
		return classHash, nil
	}
	return s.cache.ClassHashAt(s.ctx, addr)
}

func (s *State) ContractNonce(addr *felt.Felt) (felt.Felt, error) {
	if nonce, found := s.local.LookupNonce(addr); found {
		return nonce, nil
	}
	return s.cache.Nonce(s.ctx, addr)
}

func (s *State) ContractStorage(addr, key *felt.Felt) (felt.Felt, error) {
	if value, found := s.local.LookupStorage(addr, key); found {
		return value, nil
	}
	return s.cache.StorageAt(s.ctx, addr, key)
}

func (s *State) Class(classHash *felt.Felt) (*core.CompiledClass, error) {
	if class, _, found := s.local.LookupClass(classHash); found {
		return class, nil
	}
	return s.cache.Class(s.ctx, classHash)
}

func (s *State) CompiledClassHash(classHash *felt.Felt) (felt.Felt, error) {
	if _, compiledHash, found := s.local.LookupClass(classHash); found {
		return compiledHash, nil
	}
	class, err := s.cache.Class(s.ctx, classHash)
	if err != nil {
		return felt.Zero, err
	}
	return *class.Hash(), nil
}

func (s *State) SetStorage(addr, key, value *felt.Felt) error {
	return s.local.SetStorage(addr, key, value)
}

func (s *State) SetNonce(addr, nonce *felt.Felt) error {
	return s.local.SetNonce(addr, nonce)
}

func (s *State) SetClassHash(addr, classHash *felt.Felt) error {
	return s.local.SetClassHash(addr, classHash)
}

// DeclareClass declares locally, failing if the fork already knows the class
func (s *State) DeclareClass(classHash, compiledClassHash *felt.Felt, class *core.CompiledClass) error {
	if _, _, found := s.local.LookupClass(classHash); !found {
		_, err := s.cache.Class(s.ctx, classHash)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", state.ErrClassAlreadyDeclared, classHash)
		case !errors.Is(err, state.ErrUndeclaredClass):
			return err
		}
	}
	return s.local.DeclareClass(classHash, compiledClassHash, class)
}
