package vm_test

import (
	"testing"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/crypto"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGas = 1_000_000

type syscallFunc func(mem *vm.Memory, selector vm.SyscallSelector, request []vm.MaybeRelocatable, gas *uint64) (vm.SyscallResponse, error)

func (f syscallFunc) Syscall(mem *vm.Memory, selector vm.SyscallSelector, request []vm.MaybeRelocatable, gas *uint64) (vm.SyscallResponse, error) {
	return f(mem, selector, request, gas)
}

var noSyscalls = syscallFunc(func(*vm.Memory, vm.SyscallSelector, []vm.MaybeRelocatable, *uint64) (vm.SyscallResponse, error) {
	panic("unexpected syscall")
})

func run(t *testing.T, b *vm.Builder, calldata []felt.Felt, handler vm.SyscallHandler) (*vm.Result, error) {
	t.Helper()
	program, err := b.Build()
	require.NoError(t, err)
	class := &core.CompiledClass{Bytecode: program.Bytecode}
	return vm.Run(&vm.CallInput{
		Class:      class,
		EntryPoint: &core.CompiledEntryPoint{Offset: program.Functions[0].Offset},
		Calldata:   calldata,
		InitialGas: testGas,
	}, handler)
}

func felts(values ...uint64) []felt.Felt {
	out := make([]felt.Felt, len(values))
	for i, v := range values {
		out[i] = felt.FromUint64(v)
	}
	return out
}

func TestRunArithmetic(t *testing.T) {
	tests := map[string]struct {
		build    func(b *vm.Builder)
		calldata []felt.Felt
		want     []felt.Felt
	}{
		"add": {
			build:    func(b *vm.Builder) { b.Calldata(0).Calldata(1).Add().Return(1) },
			calldata: felts(2, 3),
			want:     felts(5),
		},
		"sub and mul": {
			build:    func(b *vm.Builder) { b.PushUint(10).PushUint(4).Sub().PushUint(3).Mul().Return(1) },
			want:     felts(18),
		},
		"dup and swap": {
			build:    func(b *vm.Builder) { b.PushUint(1).PushUint(2).Swap(1).Dup(1).Return(3) },
			want:     felts(2, 1, 2),
		},
		"eq and not": {
			build:    func(b *vm.Builder) { b.PushUint(4).PushUint(4).Eq().PushUint(0).Not().Return(2) },
			want:     felts(1, 1),
		},
		"loop": {
			// sum 1..n
			build: func(b *vm.Builder) {
				b.PushUint(0).Calldata(0).
					Label("loop").
					Dup(0).Jmpz("done").
					Dup(0).Swap(2).Add().Swap(1).
					PushUint(1).Sub().
					Jmp("loop").
					Label("done").
					Pop().Return(1)
			},
			calldata: felts(4),
			want:     felts(10),
		},
		"calldata span": {
			build:    func(b *vm.Builder) { b.CalldataSpan().ReturnSpan() },
			calldata: felts(7, 8, 9),
			want:     felts(7, 8, 9),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			b := vm.NewBuilder().Function("main")
			test.build(b)
			res, err := run(t, b, test.calldata, noSyscalls)
			require.NoError(t, err)
			assert.False(t, res.Failed)
			assert.Equal(t, test.want, res.Retdata)
		})
	}
}

func TestRunBuiltins(t *testing.T) {
	b := vm.NewBuilder().Function("main").
		PushUint(1).PushUint(2).Hash().
		PushUint(1).PushUint(2).Lt().
		Return(2)

	res, err := run(t, b, nil, noSyscalls)
	require.NoError(t, err)

	one, two := felt.FromUint64(1), felt.FromUint64(2)
	assert.Equal(t, []felt.Felt{*crypto.Pedersen(&one, &two), felt.FromUint64(1)}, res.Retdata)
	assert.Equal(t, uint64(1), res.Resources.Builtins[vm.PedersenBuiltin])
	assert.Equal(t, uint64(1), res.Resources.Builtins[vm.RangeCheckBuiltin])
	assert.Equal(t, uint64(7), res.Resources.Steps)
	assert.Equal(t, uint64(testGas-7*vm.StepGasCost), res.GasRemaining)
}

func TestRunPanics(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		b := vm.NewBuilder().Function("main").PushShortString("boom").Panic(1)
		res, err := run(t, b, nil, noSyscalls)
		require.NoError(t, err)
		assert.True(t, res.Failed)
		assert.Equal(t, []felt.Felt{core.MustEncodeShortString("boom")}, res.Retdata)
	})

	t.Run("missing argument", func(t *testing.T) {
		b := vm.NewBuilder().Function("main").Calldata(1).Return(1)
		res, err := run(t, b, felts(1), noSyscalls)
		require.NoError(t, err)
		assert.True(t, res.Failed)
		assert.Equal(t, []felt.Felt{core.MustEncodeShortString("Failed to deserialize param #2")}, res.Retdata)
	})

	t.Run("missing argument past param 99", func(t *testing.T) {
		b := vm.NewBuilder().Function("main").Calldata(99).Return(1)
		res, err := run(t, b, nil, noSyscalls)
		require.NoError(t, err)
		assert.True(t, res.Failed)
		assert.Equal(t, core.ByteArrayPanicData("Failed to deserialize param #100"), res.Retdata)
	})

	t.Run("too many arguments", func(t *testing.T) {
		b := vm.NewBuilder().Function("main").CalldataEnd(1).Return(0)
		res, err := run(t, b, felts(1, 2), noSyscalls)
		require.NoError(t, err)
		assert.True(t, res.Failed)
		assert.Equal(t, []felt.Felt{core.MustEncodeShortString("Input too long for arguments")}, res.Retdata)
	})

	t.Run("out of gas", func(t *testing.T) {
		b := vm.NewBuilder().Function("main").Label("spin").Jmp("spin")
		res, err := run(t, b, nil, noSyscalls)
		require.NoError(t, err)
		assert.True(t, res.Failed)
		assert.Equal(t, []felt.Felt{vm.OutOfGas}, res.Retdata)
		assert.Zero(t, res.GasRemaining)
	})
}

func TestRunErrors(t *testing.T) {
	t.Run("stack underflow", func(t *testing.T) {
		b := vm.NewBuilder().Function("main").Add()
		_, err := run(t, b, nil, noSyscalls)
		var vmErr *vm.Error
		require.ErrorAs(t, err, &vmErr)
		assert.Equal(t, uint64(0), vmErr.PC)
		require.ErrorIs(t, err, vm.ErrStackUnderflow)
	})

	t.Run("running off the end", func(t *testing.T) {
		b := vm.NewBuilder().Function("main").PushUint(1)
		_, err := run(t, b, nil, noSyscalls)
		require.ErrorIs(t, err, vm.ErrPCOutOfBounds)
	})

	t.Run("unknown label", func(t *testing.T) {
		_, err := vm.NewBuilder().Function("main").Jmp("nowhere").Build()
		require.ErrorIs(t, err, vm.ErrUnknownLabel)
	})

	t.Run("max steps", func(t *testing.T) {
		program, err := vm.NewBuilder().Function("main").Label("spin").Jmp("spin").Build()
		require.NoError(t, err)
		_, err = vm.Run(&vm.CallInput{
			Class:      &core.CompiledClass{Bytecode: program.Bytecode},
			EntryPoint: &core.CompiledEntryPoint{},
			InitialGas: testGas,
			MaxSteps:   10,
		}, noSyscalls)
		require.ErrorIs(t, err, vm.ErrMaxSteps)
	})
}

func TestRunSyscall(t *testing.T) {
	key := felt.FromUint64(0x10)
	handler := syscallFunc(func(mem *vm.Memory, selector vm.SyscallSelector, request []vm.MaybeRelocatable, gas *uint64) (vm.SyscallResponse, error) {
		switch selector {
		case vm.StorageRead:
			got, err := request[1].Felt()
			require.NoError(t, err)
			require.Equal(t, key, got)
			*gas -= selector.GasCost()
			return vm.SuccessResponse(vm.Uint64Value(42)), nil
		default:
			return vm.FailureResponse(mem, []felt.Felt{core.MustEncodeShortString("nope")})
		}
	})

	t.Run("success", func(t *testing.T) {
		b := vm.NewBuilder().Function("main").
			PushUint(0).Push(key).SyscallOrPanic(vm.StorageRead).Return(1)
		res, err := run(t, b, nil, handler)
		require.NoError(t, err)
		assert.False(t, res.Failed)
		assert.Equal(t, felts(42), res.Retdata)
		assert.Less(t, res.GasRemaining, uint64(testGas-vm.StorageRead.GasCost()))
	})

	t.Run("failure is branchable", func(t *testing.T) {
		b := vm.NewBuilder().Function("main").
			PushUint(1).Syscall(vm.ReplaceClass).
			Jmpnz("failed").Return(0).
			Label("failed").PanicSpan()
		res, err := run(t, b, nil, handler)
		require.NoError(t, err)
		assert.True(t, res.Failed)
		assert.Equal(t, []felt.Felt{core.MustEncodeShortString("nope")}, res.Retdata)
	})
}

func TestPackAndLoad(t *testing.T) {
	b := vm.NewBuilder().Function("main").
		PushUint(5).PushUint(6).PushUint(7).Pack(3).
		Dup(1).Dup(1).Len().
		Swap(1).Pop().Swap(1).
		Load(2).
		Return(2)
	res, err := run(t, b, nil, noSyscalls)
	require.NoError(t, err)
	assert.Equal(t, felts(3, 7), res.Retdata)
}
