package cheatnet

import (
	"errors"
	"fmt"
	"slices"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/vm"
)

var (
	ErrUnhandledSyscall = errors.New("unhandled syscall")
	ErrMalformedRequest = errors.New("malformed syscall request")
)

type HandleStatus uint8

const (
	Forwarded HandleStatus = iota
	Handled
)

// Frame is the call a syscall is issued from.
type Frame struct {
	Call    EntryPointCall
	Cheated CheatedData
	Node    int
}

// SyscallHandler serves a syscall or forwards it to the next handler.
type SyscallHandler interface {
	HandleSyscall(f *Frame, mem *vm.Memory, selector vm.SyscallSelector, request []vm.MaybeRelocatable,
		gas *uint64) (vm.SyscallResponse, HandleStatus, error)
}

// AfterSyscallHandler is notified of every successfully handled syscall.
type AfterSyscallHandler interface {
	AfterSyscall(f *Frame, mem *vm.Memory, selector vm.SyscallSelector, request []vm.MaybeRelocatable) error
}

// Interceptor dispatches the syscalls of one call to handlers in order.
type Interceptor struct {
	frame    *Frame
	handlers []SyscallHandler
	trace    *CallTrace
}

func NewInterceptor(frame *Frame, trace *CallTrace, handlers ...SyscallHandler) *Interceptor {
	return &Interceptor{frame: frame, trace: trace, handlers: handlers}
}

func (i *Interceptor) Syscall(mem *vm.Memory, selector vm.SyscallSelector, request []vm.MaybeRelocatable,
	gas *uint64,
) (vm.SyscallResponse, error) {
	cost := selector.GasCost()
	if *gas < cost {
		return vm.FailureResponse(mem, []felt.Felt{vm.OutOfGas})
	}
	*gas -= cost
	i.trace.Node(i.frame.Node).addSyscall(selector)

	for _, h := range i.handlers {
		resp, status, err := h.HandleSyscall(i.frame, mem, selector, request, gas)
		if err != nil {
			return vm.SyscallResponse{}, err
		}
		if status == Forwarded {
			continue
		}
		if !resp.Failed {
			if err = i.afterSyscall(mem, selector, request); err != nil {
				return vm.SyscallResponse{}, err
			}
		}
		return resp, nil
	}
	return vm.SyscallResponse{}, fmt.Errorf("%w: %s", ErrUnhandledSyscall, selector)
}

func (i *Interceptor) afterSyscall(mem *vm.Memory, selector vm.SyscallSelector, request []vm.MaybeRelocatable) error {
	for _, h := range i.handlers {
		if after, ok := h.(AfterSyscallHandler); ok {
			if err := after.AfterSyscall(i.frame, mem, selector, request); err != nil {
				return err
			}
		}
	}
	return nil
}

// syscallRequest decodes the words of a request in push order
type syscallRequest struct {
	mem   *vm.Memory
	words []vm.MaybeRelocatable
	next  int
	err   error
}

func newSyscallRequest(mem *vm.Memory, words []vm.MaybeRelocatable) *syscallRequest {
	return &syscallRequest{mem: mem, words: words}
}

func (r *syscallRequest) word() (vm.MaybeRelocatable, bool) {
	if r.err != nil {
		return vm.MaybeRelocatable{}, false
	}
	if r.next >= len(r.words) {
		r.err = fmt.Errorf("%w: missing word %d", ErrMalformedRequest, r.next)
		return vm.MaybeRelocatable{}, false
	}
	w := r.words[r.next]
	r.next++
	return w, true
}

func (r *syscallRequest) felt() felt.Felt {
	w, ok := r.word()
	if !ok {
		return felt.Zero
	}
	f, err := w.Felt()
	if err != nil {
		r.err = fmt.Errorf("%w: word %d: %w", ErrMalformedRequest, r.next-1, err)
	}
	return f
}

func (r *syscallRequest) ptr() vm.Relocatable {
	w, ok := r.word()
	if !ok {
		return vm.Relocatable{}
	}
	p, err := w.Ptr()
	if err != nil {
		r.err = fmt.Errorf("%w: word %d: %w", ErrMalformedRequest, r.next-1, err)
	}
	return p
}

// span reads a (start, end) pair and loads the felts between them
func (r *syscallRequest) span() []felt.Felt {
	start, end := r.ptr(), r.ptr()
	if r.err != nil {
		return nil
	}
	values, err := r.mem.GetFeltSpan(start, end)
	if err != nil {
		r.err = fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}
	return values
}

func (r *syscallRequest) Err() error {
	return r.err
}

// spanResponse stores data in a new segment and returns its (start, end)
func spanResponse(mem *vm.Memory, data []felt.Felt) ([]vm.MaybeRelocatable, error) {
	start, end, err := mem.AllocFelts(data)
	if err != nil {
		return nil, err
	}
	return []vm.MaybeRelocatable{vm.PtrValue(start), vm.PtrValue(end)}, nil
}

// nestedResponse reports the outcome of a nested call to its caller. A
// failed callee yields a failure response carrying its panic data, or its
// error text as a byte array, followed by ENTRYPOINT_FAILED.
func nestedResponse(mem *vm.Memory, out *callOutcome) (vm.SyscallResponse, error) {
	failure := out.result.Failure
	switch {
	case failure == nil:
		data, err := spanResponse(mem, out.result.ReturnData)
		if err != nil {
			return vm.SyscallResponse{}, err
		}
		return vm.SuccessResponse(data...), nil
	case failure.Kind == FailurePanic:
		return vm.FailureResponse(mem, append(slices.Clone(failure.PanicData), entryPointFailed))
	default:
		return vm.FailureResponse(mem, append(ByteArrayPanicData(failure.Msg), entryPointFailed))
	}
}

// cheatableSyscalls serves the syscalls cheats can affect and routes nested
// calls through the executor.
type cheatableSyscalls struct {
	e *executor
}

func (c *cheatableSyscalls) HandleSyscall(f *Frame, mem *vm.Memory, selector vm.SyscallSelector,
	request []vm.MaybeRelocatable, gas *uint64,
) (vm.SyscallResponse, HandleStatus, error) {
	var (
		resp vm.SyscallResponse
		err  error
	)
	switch selector {
	case vm.GetExecutionInfo:
		resp, err = c.getExecutionInfo(f, mem)
	case vm.CallContract:
		resp, err = c.callContract(f, mem, request, gas)
	case vm.LibraryCall:
		resp, err = c.libraryCall(f, mem, request, gas)
	case vm.Deploy:
		resp, err = c.deploy(f, mem, request, gas)
	default:
		return vm.SyscallResponse{}, Forwarded, nil
	}
	return resp, Handled, err
}

func (c *cheatableSyscalls) getExecutionInfo(f *Frame, mem *vm.Memory) (vm.SyscallResponse, error) {
	ptr, err := c.e.executionInfo(f).write(mem)
	if err != nil {
		return vm.SyscallResponse{}, err
	}
	if !f.Cheated.IsEmpty() {
		if ptr, err = RewriteExecutionInfo(mem, ptr, &f.Cheated); err != nil {
			return vm.SyscallResponse{}, err
		}
	}
	return vm.SuccessResponse(vm.PtrValue(ptr)), nil
}

func (c *cheatableSyscalls) callContract(f *Frame, mem *vm.Memory, request []vm.MaybeRelocatable,
	gas *uint64,
) (vm.SyscallResponse, error) {
	req := newSyscallRequest(mem, request)
	addr, selector, calldata := req.felt(), req.felt(), req.span()
	if err := req.Err(); err != nil {
		return vm.SyscallResponse{}, err
	}

	out, err := c.e.callContract(EntryPointCall{
		StorageAddress: addr,
		CallerAddress:  f.Call.StorageAddress,
		Selector:       selector,
		Calldata:       calldata,
		CallType:       CallTypeCall,
		EntryPointType: core.External,
		InitialGas:     *gas,
	})
	if err != nil {
		return vm.SyscallResponse{}, err
	}
	*gas -= min(out.consumed, *gas)
	return nestedResponse(mem, &out)
}

func (c *cheatableSyscalls) libraryCall(f *Frame, mem *vm.Memory, request []vm.MaybeRelocatable,
	gas *uint64,
) (vm.SyscallResponse, error) {
	req := newSyscallRequest(mem, request)
	classHash, selector, calldata := req.felt(), req.felt(), req.span()
	if err := req.Err(); err != nil {
		return vm.SyscallResponse{}, err
	}

	out, err := c.e.libraryCall(EntryPointCall{
		ClassHash:      classHash,
		StorageAddress: f.Call.StorageAddress,
		CallerAddress:  f.Call.CallerAddress,
		Selector:       selector,
		Calldata:       calldata,
		CallType:       CallTypeDelegate,
		EntryPointType: core.External,
		InitialGas:     *gas,
	}, &f.Cheated)
	if err != nil {
		return vm.SyscallResponse{}, err
	}
	*gas -= min(out.consumed, *gas)
	return nestedResponse(mem, &out)
}

func (c *cheatableSyscalls) deploy(f *Frame, mem *vm.Memory, request []vm.MaybeRelocatable,
	gas *uint64,
) (vm.SyscallResponse, error) {
	req := newSyscallRequest(mem, request)
	classHash, salt, calldata, fromZero := req.felt(), req.felt(), req.span(), req.felt()
	if err := req.Err(); err != nil {
		return vm.SyscallResponse{}, err
	}

	deployer := f.Call.StorageAddress
	if !fromZero.IsZero() {
		deployer = felt.Zero
	}
	addr, out, err := c.e.deploy(&deployer, &f.Call.StorageAddress, &classHash, &salt, calldata, *gas)
	if err != nil {
		return vm.SyscallResponse{}, err
	}
	*gas -= min(out.consumed, *gas)

	resp, err := nestedResponse(mem, &out)
	if err != nil || resp.Failed {
		return resp, err
	}
	resp.Data = append([]vm.MaybeRelocatable{vm.FeltValue(addr)}, resp.Data...)
	return resp, nil
}

func (c *cheatableSyscalls) AfterSyscall(f *Frame, mem *vm.Memory, selector vm.SyscallSelector,
	request []vm.MaybeRelocatable,
) error {
	req := newSyscallRequest(mem, request)
	switch selector {
	case vm.EmitEvent:
		keys, data := req.span(), req.span()
		if err := req.Err(); err != nil {
			return err
		}
		ev := Event{From: f.Call.StorageAddress, Keys: keys, Data: data}
		node := c.e.trace.Node(f.Node)
		node.Events = append(node.Events, ev)
		c.e.cheats.recordEvent(ev)
	case vm.SendMessageToL1:
		to, payload := req.felt(), req.span()
		if err := req.Err(); err != nil {
			return err
		}
		node := c.e.trace.Node(f.Node)
		node.Messages = append(node.Messages, MessageToL1{ToAddress: to, Payload: payload})
	}
	return nil
}
