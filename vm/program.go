package vm

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
)

var (
	ErrUnknownLabel   = errors.New("unknown label")
	ErrDuplicateLabel = errors.New("duplicate label")
)

// Function marks where a named function starts in the bytecode.
type Function struct {
	Name   string
	Offset uint64
}

// Program is assembled bytecode split into functions.
type Program struct {
	Bytecode  []felt.Felt
	Functions []Function
}

// FunctionIndex returns the index of the named function
func (p *Program) FunctionIndex(name string) (uint64, bool) {
	for i, fn := range p.Functions {
		if fn.Name == name {
			return uint64(i), true
		}
	}
	return 0, false
}

type fixup struct {
	at    int
	label string
}

// Builder assembles a Program. Labels are scoped to the whole program.
// The first error is kept and returned by Build.
type Builder struct {
	code      []felt.Felt
	functions []Function
	labels    map[string]uint64
	fixups    []fixup
	err       error
}

func NewBuilder() *Builder {
	return &Builder{labels: make(map[string]uint64)}
}

// Function starts a new function at the current position
func (b *Builder) Function(name string) *Builder {
	b.functions = append(b.functions, Function{Name: name, Offset: uint64(len(b.code))})
	return b.Label(name)
}

func (b *Builder) Label(name string) *Builder {
	if _, found := b.labels[name]; found && b.err == nil {
		b.err = fmt.Errorf("%w: %s", ErrDuplicateLabel, name)
	}
	b.labels[name] = uint64(len(b.code))
	return b
}

func (b *Builder) Op(op Opcode, imm ...felt.Felt) *Builder {
	if len(imm) != op.Immediates() && b.err == nil {
		b.err = fmt.Errorf("%s expects %d immediates, got %d", op, op.Immediates(), len(imm))
	}
	b.code = append(b.code, felt.FromUint64(uint64(op)))
	b.code = append(b.code, imm...)
	return b
}

func (b *Builder) opUint(op Opcode, v uint64) *Builder {
	return b.Op(op, felt.FromUint64(v))
}

func (b *Builder) jump(op Opcode, label string) *Builder {
	b.Op(op, felt.Zero)
	b.fixups = append(b.fixups, fixup{at: len(b.code) - 1, label: label})
	return b
}

func (b *Builder) Push(v felt.Felt) *Builder { return b.Op(OpPush, v) }
func (b *Builder) PushUint(v uint64) *Builder { return b.opUint(OpPush, v) }
func (b *Builder) Pop() *Builder { return b.Op(OpPop) }
func (b *Builder) Dup(depth uint64) *Builder { return b.opUint(OpDup, depth) }
func (b *Builder) Swap(depth uint64) *Builder { return b.opUint(OpSwap, depth) }
func (b *Builder) Add() *Builder { return b.Op(OpAdd) }
func (b *Builder) Sub() *Builder { return b.Op(OpSub) }
func (b *Builder) Mul() *Builder { return b.Op(OpMul) }
func (b *Builder) Eq() *Builder { return b.Op(OpEq) }
func (b *Builder) Lt() *Builder { return b.Op(OpLt) }
func (b *Builder) Not() *Builder { return b.Op(OpNot) }
func (b *Builder) Jmp(label string) *Builder { return b.jump(OpJmp, label) }
func (b *Builder) Jmpz(label string) *Builder { return b.jump(OpJmpz, label) }
func (b *Builder) Jmpnz(label string) *Builder { return b.jump(OpJmpnz, label) }
func (b *Builder) Calldata(idx uint64) *Builder { return b.opUint(OpCalldata, idx) }
func (b *Builder) CalldataEnd(n uint64) *Builder { return b.opUint(OpCalldataEnd, n) }
func (b *Builder) CalldataSpan() *Builder { return b.Op(OpCalldataSpan) }
func (b *Builder) Load(offset uint64) *Builder { return b.opUint(OpLoad, offset) }
func (b *Builder) Pack(n uint64) *Builder { return b.opUint(OpPack, n) }
func (b *Builder) Len() *Builder { return b.Op(OpLen) }
func (b *Builder) Hash() *Builder { return b.Op(OpHash) }
func (b *Builder) Syscall(s SyscallSelector) *Builder { return b.opUint(OpSyscall, uint64(s)) }
func (b *Builder) Return(n uint64) *Builder { return b.opUint(OpReturn, n) }
func (b *Builder) ReturnSpan() *Builder { return b.Op(OpReturnSpan) }
func (b *Builder) Panic(n uint64) *Builder { return b.opUint(OpPanic, n) }
func (b *Builder) PanicSpan() *Builder { return b.Op(OpPanicSpan) }

// PushShortString pushes s encoded as a short string
func (b *Builder) PushShortString(s string) *Builder {
	f, err := core.EncodeShortString(s)
	if err != nil && b.err == nil {
		b.err = err
	}
	return b.Push(f)
}

// SyscallOrPanic issues the syscall and propagates a failure as a panic with
// the revert reason, leaving only the response data on the stack.
func (b *Builder) SyscallOrPanic(s SyscallSelector) *Builder {
	ok := fmt.Sprintf("__syscall_ok_%d", len(b.code))
	return b.Syscall(s).Jmpz(ok).PanicSpan().Label(ok)
}

func (b *Builder) Build() (*Program, error) {
	if b.err != nil {
		return nil, b.err
	}
	code := make([]felt.Felt, len(b.code))
	copy(code, b.code)
	for _, f := range b.fixups {
		target, found := b.labels[f.label]
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLabel, f.label)
		}
		code[f.at] = felt.FromUint64(target)
	}
	functions := make([]Function, len(b.functions))
	copy(functions, b.functions)
	return &Program{Bytecode: code, Functions: functions}, nil
}
