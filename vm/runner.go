package vm

import (
	"fmt"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/crypto"
	"github.com/NethermindEth/cheatnet/core/felt"
)

const DefaultMaxSteps = 10_000_000

// CallInput describes a single entry point run.
type CallInput struct {
	Class      *core.CompiledClass
	EntryPoint *core.CompiledEntryPoint
	Calldata   []felt.Felt
	InitialGas uint64
	MaxSteps   uint64
}

// Result of a run. A failed run carries the panic data in Retdata.
type Result struct {
	Retdata      []felt.Felt
	Failed       bool
	GasRemaining uint64
	Resources    ExecutionResources
}

// GasConsumed returns how much of the initial gas the run used
func (r *Result) GasConsumed(initial uint64) uint64 {
	return initial - r.GasRemaining
}

var (
	deserializeParamPrefix = "Failed to deserialize param #"
	inputTooLong           = core.MustEncodeShortString("Input too long for arguments")
)

type runner struct {
	mem      *Memory
	code     []felt.Felt
	stack    []MaybeRelocatable
	pc       uint64
	gas      uint64
	maxSteps uint64
	handler  SyscallHandler

	calldataStart Relocatable
	calldataLen   uint64
	resources     ExecutionResources
}

type outcome struct {
	done    bool
	failed  bool
	retdata []felt.Felt
}

// Run executes an entry point of a compiled class. Nested calls made through
// the handler run on their own memory.
func Run(input *CallInput, handler SyscallHandler) (*Result, error) {
	maxSteps := input.MaxSteps
	if maxSteps == 0 {
		maxSteps = DefaultMaxSteps
	}
	r := &runner{
		mem:       NewMemory(),
		code:      input.Class.Bytecode,
		pc:        input.EntryPoint.Offset,
		gas:       input.InitialGas,
		maxSteps:  maxSteps,
		handler:   handler,
		resources: NewExecutionResources(),
	}

	var err error
	r.calldataStart, _, err = r.mem.AllocFelts(input.Calldata)
	if err != nil {
		return nil, err
	}
	r.calldataLen = uint64(len(input.Calldata))

	for {
		if r.resources.Steps >= r.maxSteps {
			return nil, &Error{PC: r.pc, Err: ErrMaxSteps}
		}
		if r.gas < StepGasCost {
			return r.result(outcome{done: true, failed: true, retdata: []felt.Felt{OutOfGas}}), nil
		}
		r.gas -= StepGasCost
		r.resources.Steps++

		ins, err := DecodeInstruction(r.code, r.pc)
		if err != nil {
			return nil, &Error{PC: r.pc, Err: err}
		}
		out, err := r.step(ins)
		if err != nil {
			return nil, &Error{PC: r.pc, Err: err}
		}
		if out.done {
			return r.result(out), nil
		}
	}
}

func (r *runner) result(out outcome) *Result {
	return &Result{
		Retdata:      out.retdata,
		Failed:       out.failed,
		GasRemaining: r.gas,
		Resources:    r.resources,
	}
}

func (r *runner) push(values ...MaybeRelocatable) {
	r.stack = append(r.stack, values...)
}

func (r *runner) pop() (MaybeRelocatable, error) {
	if len(r.stack) == 0 {
		return MaybeRelocatable{}, ErrStackUnderflow
	}
	v := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	return v, nil
}

// popN removes n values and returns them in push order
func (r *runner) popN(n uint64) ([]MaybeRelocatable, error) {
	if n > uint64(len(r.stack)) {
		return nil, ErrStackUnderflow
	}
	at := uint64(len(r.stack)) - n
	values := make([]MaybeRelocatable, n)
	copy(values, r.stack[at:])
	r.stack = r.stack[:at]
	return values, nil
}

func (r *runner) popFelt() (felt.Felt, error) {
	v, err := r.pop()
	if err != nil {
		return felt.Zero, err
	}
	return v.Felt()
}

func (r *runner) popPtr() (Relocatable, error) {
	v, err := r.pop()
	if err != nil {
		return Relocatable{}, err
	}
	return v.Ptr()
}

func (r *runner) popSpan() (Relocatable, Relocatable, error) {
	end, err := r.popPtr()
	if err != nil {
		return Relocatable{}, Relocatable{}, err
	}
	start, err := r.popPtr()
	if err != nil {
		return Relocatable{}, Relocatable{}, err
	}
	return start, end, nil
}

func (r *runner) useBuiltin(name string) {
	r.resources.Builtins[name]++
}

func boolValue(b bool) MaybeRelocatable {
	if b {
		return Uint64Value(1)
	}
	return Uint64Value(0)
}

//nolint:gocyclo
func (r *runner) step(ins Instruction) (outcome, error) {
	next := r.pc + ins.Size()
	imm := ins.Immediate

	switch ins.Op {
	case OpPush:
		r.push(FeltValue(imm))
	case OpPop:
		if _, err := r.pop(); err != nil {
			return outcome{}, err
		}
	case OpDup, OpSwap:
		depth, err := imm.Uint64()
		if err != nil || depth >= uint64(len(r.stack)) {
			return outcome{}, ErrStackUnderflow
		}
		top := uint64(len(r.stack)) - 1
		if ins.Op == OpDup {
			r.push(r.stack[top-depth])
		} else {
			r.stack[top], r.stack[top-depth] = r.stack[top-depth], r.stack[top]
		}
	case OpAdd:
		b, err := r.pop()
		if err != nil {
			return outcome{}, err
		}
		a, err := r.pop()
		if err != nil {
			return outcome{}, err
		}
		sum, err := add(a, b)
		if err != nil {
			return outcome{}, err
		}
		r.push(sum)
	case OpSub:
		b, err := r.pop()
		if err != nil {
			return outcome{}, err
		}
		a, err := r.pop()
		if err != nil {
			return outcome{}, err
		}
		diff, err := sub(a, b)
		if err != nil {
			return outcome{}, err
		}
		r.push(diff)
	case OpMul:
		b, err := r.popFelt()
		if err != nil {
			return outcome{}, err
		}
		a, err := r.popFelt()
		if err != nil {
			return outcome{}, err
		}
		r.push(FeltValue(*new(felt.Felt).Mul(&a, &b)))
	case OpEq:
		b, err := r.pop()
		if err != nil {
			return outcome{}, err
		}
		a, err := r.pop()
		if err != nil {
			return outcome{}, err
		}
		r.push(boolValue(a.Equal(b)))
	case OpLt:
		b, err := r.popFelt()
		if err != nil {
			return outcome{}, err
		}
		a, err := r.popFelt()
		if err != nil {
			return outcome{}, err
		}
		r.useBuiltin(RangeCheckBuiltin)
		r.push(boolValue(a.Cmp(&b) < 0))
	case OpNot:
		a, err := r.popFelt()
		if err != nil {
			return outcome{}, err
		}
		r.push(boolValue(a.IsZero()))
	case OpJmp:
		target, err := imm.Uint64()
		if err != nil {
			return outcome{}, ErrPCOutOfBounds
		}
		next = target
	case OpJmpz, OpJmpnz:
		cond, err := r.popFelt()
		if err != nil {
			return outcome{}, err
		}
		if cond.IsZero() == (ins.Op == OpJmpz) {
			target, err := imm.Uint64()
			if err != nil {
				return outcome{}, ErrPCOutOfBounds
			}
			next = target
		}
	case OpCalldata:
		idx, err := imm.Uint64()
		if err != nil || idx >= r.calldataLen {
			reason := core.PanicReason(fmt.Sprintf("%s%d", deserializeParamPrefix, idx+1))
			return outcome{done: true, failed: true, retdata: reason}, nil
		}
		v, err := r.mem.Get(r.calldataStart.AddUint(idx))
		if err != nil {
			return outcome{}, err
		}
		r.push(v)
	case OpCalldataEnd:
		expected, err := imm.Uint64()
		if err != nil {
			return outcome{}, err
		}
		if r.calldataLen > expected {
			return outcome{done: true, failed: true, retdata: []felt.Felt{inputTooLong}}, nil
		}
	case OpCalldataSpan:
		r.push(PtrValue(r.calldataStart), PtrValue(r.calldataStart.AddUint(r.calldataLen)))
	case OpLoad:
		ptr, err := r.popPtr()
		if err != nil {
			return outcome{}, err
		}
		addr, err := ptr.AddFelt(&imm)
		if err != nil {
			return outcome{}, err
		}
		v, err := r.mem.Get(addr)
		if err != nil {
			return outcome{}, err
		}
		r.push(v)
	case OpPack:
		n, err := imm.Uint64()
		if err != nil {
			return outcome{}, ErrStackUnderflow
		}
		values, err := r.popN(n)
		if err != nil {
			return outcome{}, err
		}
		start := r.mem.AddSegment()
		end, err := r.mem.Write(start, values...)
		if err != nil {
			return outcome{}, err
		}
		r.push(PtrValue(start), PtrValue(end))
	case OpLen:
		start, end, err := r.popSpan()
		if err != nil {
			return outcome{}, err
		}
		n, err := end.Distance(start)
		if err != nil {
			return outcome{}, err
		}
		r.push(Uint64Value(n))
	case OpHash:
		b, err := r.popFelt()
		if err != nil {
			return outcome{}, err
		}
		a, err := r.popFelt()
		if err != nil {
			return outcome{}, err
		}
		r.useBuiltin(PedersenBuiltin)
		r.push(FeltValue(*crypto.Pedersen(&a, &b)))
	case OpSyscall:
		if err := r.syscall(&imm); err != nil {
			return outcome{}, err
		}
	case OpReturn, OpPanic:
		n, err := imm.Uint64()
		if err != nil {
			return outcome{}, ErrStackUnderflow
		}
		values, err := r.popN(n)
		if err != nil {
			return outcome{}, err
		}
		data := make([]felt.Felt, len(values))
		for i, v := range values {
			if data[i], err = v.Felt(); err != nil {
				return outcome{}, err
			}
		}
		return outcome{done: true, failed: ins.Op == OpPanic, retdata: data}, nil
	case OpReturnSpan, OpPanicSpan:
		start, end, err := r.popSpan()
		if err != nil {
			return outcome{}, err
		}
		data, err := r.mem.GetFeltSpan(start, end)
		if err != nil {
			return outcome{}, err
		}
		return outcome{done: true, failed: ins.Op == OpPanicSpan, retdata: data}, nil
	default:
		return outcome{}, ErrInvalidOpcode
	}

	r.pc = next
	return outcome{}, nil
}

func (r *runner) syscall(imm *felt.Felt) error {
	raw, err := imm.Uint64()
	selector := SyscallSelector(raw)
	if err != nil || !selector.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidSyscall, imm)
	}
	request, err := r.popN(uint64(selector.RequestSize()))
	if err != nil {
		return err
	}

	resp, err := r.handler.Syscall(r.mem, selector, request, &r.gas)
	if err != nil {
		return err
	}
	r.push(resp.Data...)
	r.push(boolValue(resp.Failed))
	return nil
}

func add(a, b MaybeRelocatable) (MaybeRelocatable, error) {
	if a.isPtr && b.isPtr {
		return MaybeRelocatable{}, ErrExpectedFelt
	}
	if b.isPtr {
		a, b = b, a
	}
	if a.isPtr {
		ptr, err := a.ptr.AddFelt(&b.felt)
		if err != nil {
			return MaybeRelocatable{}, err
		}
		return PtrValue(ptr), nil
	}
	return FeltValue(*new(felt.Felt).Add(&a.felt, &b.felt)), nil
}

func sub(a, b MaybeRelocatable) (MaybeRelocatable, error) {
	switch {
	case a.isPtr && b.isPtr:
		d, err := a.ptr.Distance(b.ptr)
		if err != nil {
			return MaybeRelocatable{}, err
		}
		return Uint64Value(d), nil
	case a.isPtr:
		n, err := b.felt.Uint64()
		if err != nil {
			return MaybeRelocatable{}, ErrOffsetDoesNotFitUint
		}
		ptr, err := a.ptr.SubUint(n)
		if err != nil {
			return MaybeRelocatable{}, err
		}
		return PtrValue(ptr), nil
	case b.isPtr:
		return MaybeRelocatable{}, ErrExpectedFelt
	default:
		return FeltValue(*new(felt.Felt).Sub(&a.felt, &b.felt)), nil
	}
}
