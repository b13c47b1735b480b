// Package testcontracts assembles small contract classes for tests.
package testcontracts

import (
	"strings"
	"testing"

	"github.com/NethermindEth/cheatnet/adapters/sn2core"
	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/starknet"
	"github.com/NethermindEth/cheatnet/starknet/compiler"
	"github.com/NethermindEth/cheatnet/vm"
	"github.com/stretchr/testify/require"
)

// L1HandlerPrefix marks functions exposed as L1 handlers
const L1HandlerPrefix = "l1_handler_"

// Sierra assembles the program and exposes every function as an entry point.
// A function named "constructor" becomes the constructor and functions
// prefixed with L1HandlerPrefix become L1 handlers.
func Sierra(t testing.TB, build func(b *vm.Builder)) *starknet.SierraClass {
	t.Helper()

	b := vm.NewBuilder()
	build(b)
	program, err := b.Build()
	require.NoError(t, err)

	class := &starknet.SierraClass{
		Abi:     "[]",
		Version: "0.1.0",
		Program: compiler.EncodeProgram(program),
	}
	for i, fn := range program.Functions {
		selector := core.Selector(fn.Name)
		ep := starknet.SierraEntryPoint{Index: uint64(i), Selector: &selector}
		switch {
		case fn.Name == "constructor":
			class.EntryPoints.Constructor = append(class.EntryPoints.Constructor, ep)
		case strings.HasPrefix(fn.Name, L1HandlerPrefix):
			class.EntryPoints.L1Handler = append(class.EntryPoints.L1Handler, ep)
		default:
			class.EntryPoints.External = append(class.EntryPoints.External, ep)
		}
	}
	return class
}

// Class assembles and compiles a class ready to be declared
func Class(t testing.TB, build func(b *vm.Builder)) *core.SierraClass {
	t.Helper()

	sierra := Sierra(t, build)
	casm, err := compiler.Compile(sierra)
	require.NoError(t, err)
	class, err := sn2core.AdaptSierraClass(sierra, casm)
	require.NoError(t, err)
	return class
}

// Felts converts integers to felts
func Felts(values ...uint64) []felt.Felt {
	out := make([]felt.Felt, len(values))
	for i, v := range values {
		out[i] = felt.FromUint64(v)
	}
	return out
}
