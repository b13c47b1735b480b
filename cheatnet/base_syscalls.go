package cheatnet

import (
	"errors"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/state"
	"github.com/NethermindEth/cheatnet/vm"
)

// blockHashWindow is how many of the latest blocks have no hash available
const blockHashWindow = 10

var (
	unsupportedAddressDomain = core.MustEncodeShortString("Unsupported address domain")
	blockNumberOutOfRange    = core.MustEncodeShortString("Block number out of range")
)

// baseSyscalls serves syscalls against the state without any cheating.
type baseSyscalls struct {
	e *executor
}

func (b *baseSyscalls) HandleSyscall(f *Frame, mem *vm.Memory, selector vm.SyscallSelector,
	request []vm.MaybeRelocatable, _ *uint64,
) (vm.SyscallResponse, HandleStatus, error) {
	req := newSyscallRequest(mem, request)

	var (
		resp vm.SyscallResponse
		err  error
	)
	switch selector {
	case vm.StorageRead:
		domain, key := req.felt(), req.felt()
		if err = req.Err(); err == nil {
			resp, err = b.storageRead(f, mem, &domain, &key)
		}
	case vm.StorageWrite:
		domain, key, value := req.felt(), req.felt(), req.felt()
		if err = req.Err(); err == nil {
			resp, err = b.storageWrite(f, mem, &domain, &key, &value)
		}
	case vm.GetClassHashAt:
		addr := req.felt()
		if err = req.Err(); err == nil {
			resp, err = b.getClassHashAt(&addr)
		}
	case vm.ReplaceClass:
		classHash := req.felt()
		if err = req.Err(); err == nil {
			resp, err = b.replaceClass(f, &classHash)
		}
	case vm.GetBlockHash:
		number := req.felt()
		if err = req.Err(); err == nil {
			resp, err = b.getBlockHash(f, mem, &number)
		}
	case vm.GetExecutionInfo:
		var ptr vm.Relocatable
		if ptr, err = b.e.executionInfo(f).write(mem); err == nil {
			resp = vm.SuccessResponse(vm.PtrValue(ptr))
		}
	case vm.EmitEvent, vm.SendMessageToL1:
		resp = vm.SuccessResponse()
	default:
		return vm.SyscallResponse{}, Forwarded, nil
	}
	return resp, Handled, err
}

func (b *baseSyscalls) storageRead(f *Frame, mem *vm.Memory, domain, key *felt.Felt) (vm.SyscallResponse, error) {
	if !domain.IsZero() {
		return vm.FailureResponse(mem, []felt.Felt{unsupportedAddressDomain})
	}
	value, err := b.e.state.ContractStorage(&f.Call.StorageAddress, key)
	if err != nil {
		return vm.SyscallResponse{}, stateError(err)
	}
	return vm.SuccessResponse(vm.FeltValue(value)), nil
}

func (b *baseSyscalls) storageWrite(f *Frame, mem *vm.Memory, domain, key, value *felt.Felt) (vm.SyscallResponse, error) {
	if !domain.IsZero() {
		return vm.FailureResponse(mem, []felt.Felt{unsupportedAddressDomain})
	}
	if err := b.e.state.SetStorage(&f.Call.StorageAddress, key, value); err != nil {
		return vm.SyscallResponse{}, stateError(err)
	}
	return vm.SuccessResponse(), nil
}

func (b *baseSyscalls) getClassHashAt(addr *felt.Felt) (vm.SyscallResponse, error) {
	classHash, err := b.e.state.ContractClassHash(addr)
	if err != nil {
		return vm.SyscallResponse{}, stateError(err)
	}
	return vm.SuccessResponse(vm.FeltValue(classHash)), nil
}

func (b *baseSyscalls) replaceClass(f *Frame, classHash *felt.Felt) (vm.SyscallResponse, error) {
	if _, err := b.e.state.Class(classHash); err != nil {
		return vm.SyscallResponse{}, stateError(err)
	}
	if err := b.e.state.SetClassHash(&f.Call.StorageAddress, classHash); err != nil {
		return vm.SyscallResponse{}, stateError(err)
	}
	return vm.SuccessResponse(), nil
}

func (b *baseSyscalls) getBlockHash(f *Frame, mem *vm.Memory, number *felt.Felt) (vm.SyscallResponse, error) {
	current := b.e.block.Number
	if cheated, found := f.Cheated.Get(BlockNumber); found {
		current, _ = cheated[0].Uint64()
	}
	requested, err := number.Uint64()
	if err != nil || requested > current || current-requested < blockHashWindow {
		return vm.FailureResponse(mem, []felt.Felt{blockNumberOutOfRange})
	}

	hash, err := state.BlockHash(b.e.state, requested)
	if err != nil {
		return vm.SyscallResponse{}, stateError(err)
	}
	return vm.SuccessResponse(vm.FeltValue(hash)), nil
}

// stateError marks err as a state failure unless it must abort the test
func stateError(err error) error {
	var se *StateError
	if isFatal(err) || errors.As(err, &se) {
		return err
	}
	return &StateError{Err: err}
}
