package sn2core

import (
	"errors"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/starknet"
	"github.com/NethermindEth/cheatnet/utils"
)

var errNilFelt = errors.New("nil felt in class definition")

func AdaptCompiledEntryPoint(ep starknet.CompiledEntryPoint) core.CompiledEntryPoint {
	var selector felt.Felt
	if ep.Selector != nil {
		selector = *ep.Selector
	}
	return core.CompiledEntryPoint{
		Selector: selector,
		Offset:   ep.Offset,
		Builtins: ep.Builtins,
	}
}

func AdaptCompiledClass(casm *starknet.CasmClass) (*core.CompiledClass, error) {
	if casm == nil {
		return nil, nil
	}

	bytecode, err := derefFelts(casm.Bytecode)
	if err != nil {
		return nil, err
	}
	return &core.CompiledClass{
		Bytecode: bytecode,
		EntryPoints: core.CompiledEntryPoints{
			External:    utils.Map(casm.EntryPoints.External, AdaptCompiledEntryPoint),
			L1Handler:   utils.Map(casm.EntryPoints.L1Handler, AdaptCompiledEntryPoint),
			Constructor: utils.Map(casm.EntryPoints.Constructor, AdaptCompiledEntryPoint),
		},
	}, nil
}

func AdaptSierraEntryPoint(ep starknet.SierraEntryPoint) core.SierraEntryPoint {
	var selector felt.Felt
	if ep.Selector != nil {
		selector = *ep.Selector
	}
	return core.SierraEntryPoint{Index: ep.Index, Selector: selector}
}

// AdaptSierraClass converts a sierra class and its compiled form
func AdaptSierraClass(sierra *starknet.SierraClass, casm *starknet.CasmClass) (*core.SierraClass, error) {
	program, err := derefFelts(sierra.Program)
	if err != nil {
		return nil, err
	}
	compiled, err := AdaptCompiledClass(casm)
	if err != nil {
		return nil, err
	}

	return &core.SierraClass{
		SemanticVersion: sierra.Version,
		Abi:             sierra.Abi,
		Program:         program,
		EntryPoints: core.SierraEntryPoints{
			External:    utils.Map(sierra.EntryPoints.External, AdaptSierraEntryPoint),
			L1Handler:   utils.Map(sierra.EntryPoints.L1Handler, AdaptSierraEntryPoint),
			Constructor: utils.Map(sierra.EntryPoints.Constructor, AdaptSierraEntryPoint),
		},
		Compiled: compiled,
	}, nil
}

func derefFelts(in []*felt.Felt) ([]felt.Felt, error) {
	out := make([]felt.Felt, len(in))
	for i, f := range in {
		if f == nil {
			return nil, errNilFelt
		}
		out[i] = *f
	}
	return out, nil
}
