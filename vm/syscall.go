package vm

import (
	"fmt"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
)

// SyscallSelector identifies a system call.
type SyscallSelector uint64

const (
	CallContract SyscallSelector = iota + 1
	LibraryCall
	Deploy
	EmitEvent
	GetExecutionInfo
	StorageRead
	StorageWrite
	GetClassHashAt
	ReplaceClass
	SendMessageToL1
	GetBlockHash
	syscallEnd
)

const (
	StepGasCost             uint64 = 100
	SyscallBaseGasCost             = 100 * StepGasCost
	EntryPointInitialBudget        = 100 * StepGasCost
	EntryPointGasCost              = EntryPointInitialBudget + 500*StepGasCost
)

type syscallInfo struct {
	name        string
	requestSize int
	gasCost     uint64
}

var syscalls = [...]syscallInfo{
	CallContract:     {"CallContract", 4, SyscallBaseGasCost + 10*StepGasCost + EntryPointGasCost},
	LibraryCall:      {"LibraryCall", 4, SyscallBaseGasCost + 10*StepGasCost + EntryPointGasCost},
	Deploy:           {"Deploy", 5, SyscallBaseGasCost + 200*StepGasCost + EntryPointGasCost},
	EmitEvent:        {"EmitEvent", 4, SyscallBaseGasCost + 10*StepGasCost},
	GetExecutionInfo: {"GetExecutionInfo", 0, SyscallBaseGasCost + 10*StepGasCost},
	StorageRead:      {"StorageRead", 2, SyscallBaseGasCost + 50*StepGasCost},
	StorageWrite:     {"StorageWrite", 3, SyscallBaseGasCost + 50*StepGasCost},
	GetClassHashAt:   {"GetClassHashAt", 1, SyscallBaseGasCost + 50*StepGasCost},
	ReplaceClass:     {"ReplaceClass", 1, SyscallBaseGasCost + 50*StepGasCost},
	SendMessageToL1:  {"SendMessageToL1", 3, SyscallBaseGasCost + 50*StepGasCost},
	GetBlockHash:     {"GetBlockHash", 1, SyscallBaseGasCost + 50*StepGasCost},
}

func (s SyscallSelector) Valid() bool {
	return s >= CallContract && s < syscallEnd
}

func (s SyscallSelector) String() string {
	if !s.Valid() {
		return fmt.Sprintf("SyscallSelector(%d)", uint64(s))
	}
	return syscalls[s].name
}

// RequestSize is the number of stack words the syscall consumes
func (s SyscallSelector) RequestSize() int {
	return syscalls[s].requestSize
}

// GasCost is the fixed amount charged before the syscall runs
func (s SyscallSelector) GasCost() uint64 {
	return syscalls[s].gasCost
}

// OutOfGas is the panic data reported when gas runs out.
var OutOfGas = core.MustEncodeShortString("Out of gas")

// SyscallResponse is pushed onto the caller's stack: Data followed by a
// failure flag. A failed response carries (start, end) of the revert reason.
type SyscallResponse struct {
	Failed bool
	Data   []MaybeRelocatable
}

func SuccessResponse(data ...MaybeRelocatable) SyscallResponse {
	return SyscallResponse{Data: data}
}

// FailureResponse stores reason in a new segment and returns a failed response pointing to it
func FailureResponse(mem *Memory, reason []felt.Felt) (SyscallResponse, error) {
	start, end, err := mem.AllocFelts(reason)
	if err != nil {
		return SyscallResponse{}, err
	}
	return SyscallResponse{Failed: true, Data: []MaybeRelocatable{PtrValue(start), PtrValue(end)}}, nil
}

// SyscallHandler serves the SYSCALL instruction. The request is in push order.
// gas is the caller's remaining gas and may be reduced by the handler.
// A non-nil error aborts the whole run.
type SyscallHandler interface {
	Syscall(mem *Memory, selector SyscallSelector, request []MaybeRelocatable, gas *uint64) (SyscallResponse, error)
}
