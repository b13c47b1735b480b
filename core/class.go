package core

import (
	"github.com/NethermindEth/cheatnet/core/crypto"
	"github.com/NethermindEth/cheatnet/core/felt"
)

var (
	sierraClassVersionPrefix   = MustEncodeShortString("CONTRACT_CLASS_V0.1.0")
	compiledClassVersionPrefix = MustEncodeShortString("COMPILED_CLASS_V1")

	// FaultyClassHash is a legacy account class that version 0 transactions
	// are not allowed to invoke.
	FaultyClassHash = felt.NewUnsafeFromString("0x1A7820094FEAF82D53F53F214B81292D717E7BB9A92BB2488092CD306F3993F")
)

type EntryPointType uint8

const (
	External EntryPointType = iota
	L1Handler
	Constructor
)

func (t EntryPointType) String() string {
	switch t {
	case External:
		return "EXTERNAL"
	case L1Handler:
		return "L1_HANDLER"
	case Constructor:
		return "CONSTRUCTOR"
	default:
		return "UNKNOWN"
	}
}

type CompiledEntryPoint struct {
	Selector felt.Felt
	Offset   uint64
	Builtins []string
}

type CompiledEntryPoints struct {
	External    []CompiledEntryPoint
	L1Handler   []CompiledEntryPoint
	Constructor []CompiledEntryPoint
}

// CompiledClass is the executable form of a contract class.
type CompiledClass struct {
	Bytecode    []felt.Felt
	EntryPoints CompiledEntryPoints
}

func (c *CompiledClass) entryPoints(typ EntryPointType) []CompiledEntryPoint {
	switch typ {
	case External:
		return c.EntryPoints.External
	case L1Handler:
		return c.EntryPoints.L1Handler
	case Constructor:
		return c.EntryPoints.Constructor
	default:
		return nil
	}
}

// EntryPoint looks up the entry point of the given type with the given selector
func (c *CompiledClass) EntryPoint(typ EntryPointType, selector *felt.Felt) (*CompiledEntryPoint, bool) {
	eps := c.entryPoints(typ)
	for i := range eps {
		if eps[i].Selector.Equal(selector) {
			return &eps[i], true
		}
	}
	return nil, false
}

// HasConstructor reports whether the class defines a constructor
func (c *CompiledClass) HasConstructor() bool {
	return len(c.EntryPoints.Constructor) > 0
}

func (c *CompiledClass) Hash() *felt.Felt {
	bytecode := make([]*felt.Felt, len(c.Bytecode))
	for i := range c.Bytecode {
		bytecode[i] = &c.Bytecode[i]
	}

	return crypto.PedersenArray(
		&compiledClassVersionPrefix,
		compiledEntryPointsHash(c.EntryPoints.External),
		compiledEntryPointsHash(c.EntryPoints.L1Handler),
		compiledEntryPointsHash(c.EntryPoints.Constructor),
		crypto.PedersenArray(bytecode...),
	)
}

func compiledEntryPointsHash(eps []CompiledEntryPoint) *felt.Felt {
	var digest crypto.PedersenDigest
	for i := range eps {
		builtins := make([]*felt.Felt, len(eps[i].Builtins))
		for j, name := range eps[i].Builtins {
			b := felt.FromBytes([]byte(name))
			builtins[j] = &b
		}
		offset := felt.FromUint64(eps[i].Offset)
		digest.Update(&eps[i].Selector, &offset, crypto.PedersenArray(builtins...))
	}
	return digest.Finish()
}

type SierraEntryPoint struct {
	Index    uint64
	Selector felt.Felt
}

type SierraEntryPoints struct {
	External    []SierraEntryPoint
	L1Handler   []SierraEntryPoint
	Constructor []SierraEntryPoint
}

// SierraClass is a declared high level class together with its compiled form.
type SierraClass struct {
	SemanticVersion string
	Abi             string
	Program         []felt.Felt
	EntryPoints     SierraEntryPoints
	Compiled        *CompiledClass
}

// Hash computes the class hash. It covers the version, entry points, abi and
// program, not the compiled form.
func (c *SierraClass) Hash() (*felt.Felt, error) {
	abiHash, err := crypto.StarknetKeccak([]byte(c.Abi))
	if err != nil {
		return nil, err
	}
	version, err := EncodeShortString(c.SemanticVersion)
	if err != nil {
		return nil, err
	}

	program := make([]*felt.Felt, len(c.Program))
	for i := range c.Program {
		program[i] = &c.Program[i]
	}

	return crypto.PedersenArray(
		&sierraClassVersionPrefix,
		&version,
		sierraEntryPointsHash(c.EntryPoints.External),
		sierraEntryPointsHash(c.EntryPoints.L1Handler),
		sierraEntryPointsHash(c.EntryPoints.Constructor),
		abiHash,
		crypto.PedersenArray(program...),
	), nil
}

func sierraEntryPointsHash(eps []SierraEntryPoint) *felt.Felt {
	var digest crypto.PedersenDigest
	for i := range eps {
		index := felt.FromUint64(eps[i].Index)
		digest.Update(&eps[i].Selector, &index)
	}
	return digest.Finish()
}
