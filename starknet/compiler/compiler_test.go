package compiler_test

import (
	"context"
	"testing"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/internal/testcontracts"
	"github.com/NethermindEth/cheatnet/starknet"
	"github.com/NethermindEth/cheatnet/starknet/compiler"
	"github.com/NethermindEth/cheatnet/utils"
	"github.com/NethermindEth/cheatnet/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	t.Run("zero sierra", func(t *testing.T) {
		_, err := compiler.Compile(&starknet.SierraClass{})
		require.ErrorIs(t, err, compiler.ErrInvalidProgram)
	})

	t.Run("ok", func(t *testing.T) {
		sierra := testcontracts.Sierra(t, func(b *vm.Builder) {
			b.Function("constructor").Return(0)
			b.Function("hash").Calldata(0).Calldata(1).Hash().Return(1)
			b.Function("compare").Calldata(0).Calldata(1).Lt().Return(1)
		})

		casm, err := compiler.Compile(sierra)
		require.NoError(t, err)
		assert.Equal(t, compiler.Version, casm.CompilerVersion)
		require.Len(t, casm.EntryPoints.Constructor, 1)
		require.Len(t, casm.EntryPoints.External, 2)

		hashSelector := core.Selector("hash")
		assert.Equal(t, &hashSelector, casm.EntryPoints.External[0].Selector)
		assert.Equal(t, []string{vm.PedersenBuiltin}, casm.EntryPoints.External[0].Builtins)
		assert.Equal(t, []string{vm.RangeCheckBuiltin}, casm.EntryPoints.External[1].Builtins)
		assert.Empty(t, casm.EntryPoints.Constructor[0].Builtins)
		assert.Equal(t, uint64(0), casm.EntryPoints.Constructor[0].Offset)
		assert.Equal(t, uint64(2), casm.EntryPoints.External[0].Offset)
	})

	t.Run("bad magic", func(t *testing.T) {
		_, err := compiler.Compile(&starknet.SierraClass{Program: []*felt.Felt{felt.NewUnsafeFromString("0x1"), felt.NewUnsafeFromString("0x1")}})
		require.ErrorIs(t, err, compiler.ErrInvalidProgram)
	})

	t.Run("jump into immediate", func(t *testing.T) {
		sierra := testcontracts.Sierra(t, func(b *vm.Builder) {
			b.Function("main").PushUint(1).Return(1)
		})
		// replace PUSH with JMP 1, which lands on PUSH's immediate
		sierra.Program[3] = new(felt.Felt).SetUint64(uint64(vm.OpJmp))
		_, err := compiler.Compile(sierra)
		require.ErrorIs(t, err, compiler.ErrInvalidProgram)
	})

	t.Run("unknown syscall", func(t *testing.T) {
		sierra := testcontracts.Sierra(t, func(b *vm.Builder) {
			b.Function("main").Op(vm.OpSyscall, felt.FromUint64(99)).Return(0)
		})
		_, err := compiler.Compile(sierra)
		require.ErrorIs(t, err, compiler.ErrInvalidProgram)
	})

	t.Run("entry point out of range", func(t *testing.T) {
		sierra := testcontracts.Sierra(t, func(b *vm.Builder) {
			b.Function("main").Return(0)
		})
		sierra.EntryPoints.External[0].Index = 5
		_, err := compiler.Compile(sierra)
		require.ErrorIs(t, err, compiler.ErrInvalidEntryPoint)
	})

	t.Run("duplicate selector", func(t *testing.T) {
		sierra := testcontracts.Sierra(t, func(b *vm.Builder) {
			b.Function("main").Return(0)
		})
		sierra.EntryPoints.External = append(sierra.EntryPoints.External, sierra.EntryPoints.External[0])
		_, err := compiler.Compile(sierra)
		require.ErrorIs(t, err, compiler.ErrInvalidEntryPoint)
	})
}

func TestCompileDefinition(t *testing.T) {
	c := compiler.New(utils.NewNopZapLogger())

	t.Run("legacy class", func(t *testing.T) {
		def := &starknet.ClassDefinition{DeprecatedCairo: &starknet.DeprecatedCairoClass{}}
		_, err := compiler.CompileDefinition(context.Background(), c, def)
		require.ErrorIs(t, err, compiler.ErrUnsupportedLegacyClass)
	})

	t.Run("sierra class", func(t *testing.T) {
		def := &starknet.ClassDefinition{Sierra: testcontracts.Sierra(t, func(b *vm.Builder) {
			b.Function("main").Return(0)
		})}
		casm, err := compiler.CompileDefinition(context.Background(), c, def)
		require.NoError(t, err)
		assert.Len(t, casm.EntryPoints.External, 1)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.Compile(ctx, &starknet.SierraClass{})
		require.ErrorIs(t, err, context.Canceled)
	})
}
