package cheatnet_test

import (
	"testing"

	"github.com/NethermindEth/cheatnet/cheatnet"
	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/internal/testcontracts"
	"github.com/NethermindEth/cheatnet/state"
	"github.com/NethermindEth/cheatnet/vm"
	"github.com/stretchr/testify/require"
)

// checker exposes the execution info and the syscalls to tests
func checker(b *vm.Builder) {
	b.Function("get_block_number").
		SyscallOrPanic(vm.GetExecutionInfo).Load(0).Load(0).Return(1)
	b.Function("get_block_timestamp").
		SyscallOrPanic(vm.GetExecutionInfo).Load(0).Load(1).Return(1)
	b.Function("get_sequencer_address").
		SyscallOrPanic(vm.GetExecutionInfo).Load(0).Load(2).Return(1)
	b.Function("get_caller_address").
		SyscallOrPanic(vm.GetExecutionInfo).Load(2).Return(1)
	b.Function("get_contract_address").
		SyscallOrPanic(vm.GetExecutionInfo).Load(3).Return(1)
	b.Function("get_tx_version").
		SyscallOrPanic(vm.GetExecutionInfo).Load(1).Load(0).Return(1)
	b.Function("get_signature").
		SyscallOrPanic(vm.GetExecutionInfo).Load(1).Dup(0).Load(3).Swap(1).Load(4).ReturnSpan()
	b.Function("set_storage").
		PushUint(0).Calldata(0).Calldata(1).SyscallOrPanic(vm.StorageWrite).Return(0)
	b.Function("get_storage").
		PushUint(0).Calldata(0).SyscallOrPanic(vm.StorageRead).Return(1)
	b.Function("panic_boom").
		PushShortString("boom").Panic(1)
	b.Function("strict_arg").
		Calldata(0).CalldataEnd(1).Return(1)
	b.Function("strict_arg_100").
		Calldata(99).Return(1)
	b.Function("emit").
		PushUint(1).Pack(1).PushUint(2).Pack(1).SyscallOrPanic(vm.EmitEvent).Return(0)
	b.Function("send_message").
		PushUint(0x123).PushUint(7).Pack(1).SyscallOrPanic(vm.SendMessageToL1).Return(0)
	b.Function("call_other").
		Calldata(0).Calldata(1).Pack(0).SyscallOrPanic(vm.CallContract).ReturnSpan()
	b.Function("call_catch").
		Calldata(0).Calldata(1).Pack(0).Syscall(vm.CallContract).Jmpz("ok").
		ReturnSpan().
		Label("ok").Pop().Pop().PushShortString("ok").Return(1)
	b.Function("library_call_twice").
		Calldata(0).Calldata(1).Pack(0).SyscallOrPanic(vm.LibraryCall).Pop().Load(0).
		Calldata(0).Calldata(1).Pack(0).SyscallOrPanic(vm.LibraryCall).Pop().Load(0).
		Return(2)
	b.Function("deploy_other").
		Calldata(0).Calldata(1).Pack(0).PushUint(0).SyscallOrPanic(vm.Deploy).Pop().Pop().Return(1)
	b.Function("get_block_hash").
		Calldata(0).SyscallOrPanic(vm.GetBlockHash).Return(1)
	b.Function("get_class_hash_at").
		Calldata(0).SyscallOrPanic(vm.GetClassHashAt).Return(1)
	b.Function("replace_class").
		Calldata(0).SyscallOrPanic(vm.ReplaceClass).Return(0)
	b.Function("spin").
		Label("loop").Jmp("loop")
	b.Function(testcontracts.L1HandlerPrefix + "receive").
		Calldata(0).Calldata(1).Return(2)
}

// owned stores its deployer and the owner passed to the constructor
func owned(b *vm.Builder) {
	b.Function("constructor").
		PushUint(0).PushShortString("owner").Calldata(0).SyscallOrPanic(vm.StorageWrite).
		PushUint(0).PushShortString("caller").
		SyscallOrPanic(vm.GetExecutionInfo).Load(2).
		SyscallOrPanic(vm.StorageWrite).
		Return(0)
	b.Function("get_block_number").
		SyscallOrPanic(vm.GetExecutionInfo).Load(0).Load(0).Return(1)
}

// constant answers get_block_number with 7
func constant(b *vm.Builder) {
	b.Function("get_block_number").PushUint(7).Return(1)
}

func selector(name string) *felt.Felt {
	s := core.Selector(name)
	return &s
}

func newRuntime(t *testing.T) *cheatnet.Runtime {
	t.Helper()
	return cheatnet.New(state.NewDict())
}

func declare(t *testing.T, r *cheatnet.Runtime, build func(b *vm.Builder)) felt.Felt {
	t.Helper()
	classHash, err := r.Declare(testcontracts.Class(t, build))
	require.NoError(t, err)
	return classHash
}

func deploy(t *testing.T, r *cheatnet.Runtime, classHash felt.Felt, calldata ...felt.Felt) felt.Felt {
	t.Helper()
	addr, result, err := r.Deploy(&classHash, nil, calldata, false)
	require.NoError(t, err)
	require.True(t, result.IsSuccess(), result.String())
	return addr
}

func call(t *testing.T, r *cheatnet.Runtime, addr felt.Felt, fn string, calldata ...felt.Felt) cheatnet.CallResult {
	t.Helper()
	result, err := r.CallEntryPoint(&addr, selector(fn), calldata)
	require.NoError(t, err)
	return result
}

func requireSuccess(t *testing.T, result cheatnet.CallResult, want ...felt.Felt) {
	t.Helper()
	require.True(t, result.IsSuccess(), result.String())
	if len(want) == 0 {
		require.Empty(t, result.ReturnData)
		return
	}
	require.Equal(t, want, result.ReturnData)
}

func requirePanic(t *testing.T, result cheatnet.CallResult, want ...felt.Felt) {
	t.Helper()
	require.NotNil(t, result.Failure, "expected a panic")
	require.Equal(t, cheatnet.FailurePanic, result.Failure.Kind, result.String())
	require.Equal(t, want, result.Failure.PanicData)
}

func shortString(s string) felt.Felt {
	return core.MustEncodeShortString(s)
}
