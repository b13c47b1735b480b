package cheatnet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/forking"
	"github.com/NethermindEth/cheatnet/vm"
)

var (
	ErrUninitializedStorageAddress = errors.New("uninitialized storage address")
	ErrEntryPointNotFound          = errors.New("entry point not found")
	ErrFraudAttempt                = errors.New("fraud attempt blocked")
)

type FailureKind uint8

const (
	FailurePanic FailureKind = iota
	FailureError
)

func (k FailureKind) String() string {
	if k == FailureError {
		return "Error"
	}
	return "Panic"
}

// CallFailure is either a panic with data raised by the contract or an error
// that prevented the call from completing.
type CallFailure struct {
	Kind      FailureKind
	PanicData []felt.Felt
	Msg       string
}

func (f *CallFailure) String() string {
	if f.Kind == FailureError {
		return f.Msg
	}
	return FormatPanicData(f.PanicData)
}

// CallResult is the outcome of a call. Failure is nil on success.
type CallResult struct {
	ReturnData []felt.Felt
	Failure    *CallFailure
}

func Success(data []felt.Felt) CallResult {
	return CallResult{ReturnData: data}
}

func PanicResult(data []felt.Felt) CallResult {
	return CallResult{Failure: &CallFailure{Kind: FailurePanic, PanicData: data}}
}

func ErrorResult(msg string) CallResult {
	return CallResult{Failure: &CallFailure{Kind: FailureError, Msg: msg}}
}

func (r CallResult) IsSuccess() bool {
	return r.Failure == nil
}

func (r CallResult) String() string {
	if r.Failure == nil {
		return "Success(" + FormatPanicData(r.ReturnData) + ")"
	}
	return r.Failure.Kind.String() + "(" + r.Failure.String() + ")"
}

// PreExecutionError is raised before any code of the callee runs.
type PreExecutionError struct {
	Err       error
	Address   felt.Felt
	ClassHash felt.Felt
	Selector  felt.Felt
}

func (e *PreExecutionError) Error() string {
	switch {
	case errors.Is(e.Err, ErrUninitializedStorageAddress):
		return fmt.Sprintf("Requested contract address %s is not deployed.", e.Address.String())
	case errors.Is(e.Err, ErrEntryPointNotFound):
		return fmt.Sprintf("Entry point EntryPointSelector(%s) not found in contract.", e.Selector.String())
	default:
		return e.Err.Error()
	}
}

func (e *PreExecutionError) Unwrap() error {
	return e.Err
}

func (e *PreExecutionError) panicData() []felt.Felt {
	switch {
	case errors.Is(e.Err, ErrUninitializedStorageAddress):
		return []felt.Felt{contractNotDeployed, entryPointFailed}
	case errors.Is(e.Err, ErrFraudAttempt):
		return []felt.Felt{fraudAttempt, entryPointFailed}
	default:
		return []felt.Felt{entryPointNotFound, entryPointFailed}
	}
}

// StateError is a failure of the state provider during a call.
type StateError struct {
	Err error
}

func (e *StateError) Error() string {
	return "state error: " + e.Err.Error()
}

func (e *StateError) Unwrap() error {
	return e.Err
}

var argumentErrors = []string{
	"Failed to deserialize param #",
	"Input too long for arguments",
}

// atBoundary reports a top level panic carrying an argument
// deserialization failure as an error. Nested callers see the raw panic.
func atBoundary(r CallResult) CallResult {
	if r.Failure == nil || r.Failure.Kind != FailurePanic {
		return r
	}
	formatted := FormatPanicData(r.Failure.PanicData)
	for _, marker := range argumentErrors {
		if strings.Contains(formatted, marker) {
			return ErrorResult(formatted)
		}
	}
	return r
}

// isFatal reports errors that abort the whole test instead of failing a call
func isFatal(err error) bool {
	return errors.Is(err, forking.ErrRemoteTimeout) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// classify turns the outcome of a run into a CallResult. Only fatal errors
// are returned.
func classify(res *vm.Result, err error) (CallResult, error) {
	if err != nil {
		if isFatal(err) {
			return CallResult{}, err
		}
		var preErr *PreExecutionError
		if errors.As(err, &preErr) {
			return PanicResult(preErr.panicData()), nil
		}
		var stateErr *StateError
		if errors.As(err, &stateErr) {
			return ErrorResult(err.Error()), nil
		}
		if data, ok := ExtractPanicData(err.Error()); ok {
			return PanicResult(data), nil
		}
		return ErrorResult(err.Error()), nil
	}

	if res.Failed {
		return PanicResult(res.Retdata), nil
	}
	return Success(res.Retdata), nil
}
