package state

import (
	"fmt"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
)

type storageKey struct {
	addr felt.Felt
	key  felt.Felt
}

type declaredClass struct {
	compiledHash felt.Felt
	class        *core.CompiledClass
}

// Dict is an in-memory State. Writes are visible immediately.
type Dict struct {
	classHashes map[felt.Felt]felt.Felt
	nonces      map[felt.Felt]felt.Felt
	storage     map[storageKey]felt.Felt
	classes     map[felt.Felt]declaredClass
}

var _ State = (*Dict)(nil)

func NewDict() *Dict {
	return &Dict{
		classHashes: make(map[felt.Felt]felt.Felt),
		nonces:      make(map[felt.Felt]felt.Felt),
		storage:     make(map[storageKey]felt.Felt),
		classes:     make(map[felt.Felt]declaredClass),
	}
}

func (d *Dict) ContractClassHash(addr *felt.Felt) (felt.Felt, error) {
	classHash, _ := d.LookupClassHash(addr)
	return classHash, nil
}

func (d *Dict) ContractNonce(addr *felt.Felt) (felt.Felt, error) {
	nonce, _ := d.LookupNonce(addr)
	return nonce, nil
}

func (d *Dict) ContractStorage(addr, key *felt.Felt) (felt.Felt, error) {
	value, _ := d.LookupStorage(addr, key)
	return value, nil
}

func (d *Dict) Class(classHash *felt.Felt) (*core.CompiledClass, error) {
	if declared, found := d.classes[*classHash]; found {
		return declared.class, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUndeclaredClass, classHash)
}

func (d *Dict) CompiledClassHash(classHash *felt.Felt) (felt.Felt, error) {
	if declared, found := d.classes[*classHash]; found {
		return declared.compiledHash, nil
	}
	return felt.Zero, fmt.Errorf("%w: %s", ErrUndeclaredClass, classHash)
}

// LookupClassHash reports whether addr has a locally known class hash
func (d *Dict) LookupClassHash(addr *felt.Felt) (felt.Felt, bool) {
	v, ok := d.classHashes[*addr]
	return v, ok
}

func (d *Dict) LookupNonce(addr *felt.Felt) (felt.Felt, bool) {
	v, ok := d.nonces[*addr]
	return v, ok
}

func (d *Dict) LookupStorage(addr, key *felt.Felt) (felt.Felt, bool) {
	v, ok := d.storage[storageKey{addr: *addr, key: *key}]
	return v, ok
}

func (d *Dict) LookupClass(classHash *felt.Felt) (*core.CompiledClass, felt.Felt, bool) {
	declared, ok := d.classes[*classHash]
	return declared.class, declared.compiledHash, ok
}

func (d *Dict) SetStorage(addr, key, value *felt.Felt) error {
	d.storage[storageKey{addr: *addr, key: *key}] = *value
	return nil
}

func (d *Dict) SetNonce(addr, nonce *felt.Felt) error {
	d.nonces[*addr] = *nonce
	return nil
}

func (d *Dict) SetClassHash(addr, classHash *felt.Felt) error {
	d.classHashes[*addr] = *classHash
	return nil
}

func (d *Dict) DeclareClass(classHash, compiledClassHash *felt.Felt, class *core.CompiledClass) error {
	if _, found := d.classes[*classHash]; found {
		return fmt.Errorf("%w: %s", ErrClassAlreadyDeclared, classHash)
	}
	d.classes[*classHash] = declaredClass{compiledHash: *compiledClassHash, class: class}
	return nil
}
