package vm

import (
	"fmt"

	"github.com/NethermindEth/cheatnet/core/felt"
)

// Opcode is the first word of every instruction. Immediates follow it.
type Opcode uint64

const (
	OpPush         Opcode = iota + 1 // push imm
	OpPop                            // drop top
	OpDup                            // push copy of stack[top-imm]
	OpSwap                           // swap top with stack[top-imm]
	OpAdd                            // felt+felt or ptr+felt
	OpSub                            // felt-felt, ptr-felt or ptr-ptr
	OpMul                            // felt*felt
	OpEq                             // 1 if equal else 0
	OpLt                             // 1 if a < b else 0, uses range_check
	OpNot                            // 1 if zero else 0
	OpJmp                            // pc = imm
	OpJmpz                           // pop, jump if zero
	OpJmpnz                          // pop, jump if non zero
	OpCalldata                       // push calldata[imm]
	OpCalldataEnd                    // fail if calldata has more than imm words
	OpCalldataSpan                   // push calldata start, end
	OpLoad                           // pop ptr, push [ptr+imm]
	OpPack                           // pop imm values into a new segment, push start, end
	OpLen                            // pop start, end, push end-start
	OpHash                           // pop b, a, push pedersen(a, b)
	OpSyscall                        // syscall imm
	OpReturn                         // return imm values
	OpReturnSpan                     // return [start, end)
	OpPanic                          // panic with imm values
	OpPanicSpan                      // panic with [start, end)
	opcodeEnd
)

var opcodeNames = [...]string{
	OpPush:         "PUSH",
	OpPop:          "POP",
	OpDup:          "DUP",
	OpSwap:         "SWAP",
	OpAdd:          "ADD",
	OpSub:          "SUB",
	OpMul:          "MUL",
	OpEq:           "EQ",
	OpLt:           "LT",
	OpNot:          "NOT",
	OpJmp:          "JMP",
	OpJmpz:         "JMPZ",
	OpJmpnz:        "JMPNZ",
	OpCalldata:     "CALLDATA",
	OpCalldataEnd:  "CALLDATA_END",
	OpCalldataSpan: "CALLDATA_SPAN",
	OpLoad:         "LOAD",
	OpPack:         "PACK",
	OpLen:          "LEN",
	OpHash:         "HASH",
	OpSyscall:      "SYSCALL",
	OpReturn:       "RETURN",
	OpReturnSpan:   "RETURN_SPAN",
	OpPanic:        "PANIC",
	OpPanicSpan:    "PANIC_SPAN",
}

func (o Opcode) Valid() bool {
	return o >= OpPush && o < opcodeEnd
}

func (o Opcode) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Opcode(%d)", uint64(o))
	}
	return opcodeNames[o]
}

// Immediates returns how many words follow the opcode
func (o Opcode) Immediates() int {
	switch o {
	case OpPush, OpDup, OpSwap, OpJmp, OpJmpz, OpJmpnz, OpCalldata, OpCalldataEnd,
		OpLoad, OpPack, OpSyscall, OpReturn, OpPanic:
		return 1
	default:
		return 0
	}
}

// IsJump reports whether the immediate is a bytecode offset
func (o Opcode) IsJump() bool {
	return o == OpJmp || o == OpJmpz || o == OpJmpnz
}

// Builtin returns the builtin an instruction uses, if any
func (o Opcode) Builtin() (string, bool) {
	switch o {
	case OpHash:
		return PedersenBuiltin, true
	case OpLt:
		return RangeCheckBuiltin, true
	default:
		return "", false
	}
}

// Instruction is a decoded instruction.
type Instruction struct {
	Op        Opcode
	Immediate felt.Felt
}

// Size returns the number of words the instruction occupies
func (i Instruction) Size() uint64 {
	return 1 + uint64(i.Op.Immediates())
}

// DecodeInstruction decodes the instruction at pc
func DecodeInstruction(code []felt.Felt, pc uint64) (Instruction, error) {
	if pc >= uint64(len(code)) {
		return Instruction{}, fmt.Errorf("%w: %d", ErrPCOutOfBounds, pc)
	}
	raw, err := code[pc].Uint64()
	op := Opcode(raw)
	if err != nil || !op.Valid() {
		return Instruction{}, fmt.Errorf("%w: %s", ErrInvalidOpcode, code[pc].String())
	}

	ins := Instruction{Op: op}
	if op.Immediates() > 0 {
		if pc+1 >= uint64(len(code)) {
			return Instruction{}, fmt.Errorf("%w: %s at %d", ErrMissingImmediate, op, pc)
		}
		ins.Immediate = code[pc+1]
	}
	return ins, nil
}
