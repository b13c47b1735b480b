package vm

import (
	"errors"
	"fmt"
)

var (
	ErrPCOutOfBounds    = errors.New("pc out of bounds")
	ErrInvalidOpcode    = errors.New("invalid opcode")
	ErrMissingImmediate = errors.New("missing immediate")
	ErrStackUnderflow   = errors.New("stack underflow")
	ErrMaxSteps         = errors.New("RunResources has no remaining steps")
	ErrInvalidSyscall   = errors.New("invalid syscall selector")
	ErrRangeCheck       = errors.New("value is out of range check bounds")
)

// Error wraps a failure of the machine itself, as opposed to a panic raised by the contract.
type Error struct {
	PC  uint64
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("Error at pc=0:%d:\n%s", e.PC, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
