package cheatnet

import (
	"errors"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/state"
	"github.com/NethermindEth/cheatnet/utils"
	"github.com/NethermindEth/cheatnet/vm"
)

var ErrConstructorCalldata = errors.New("cannot pass calldata to a contract with no constructor")

// executor runs entry points and keeps the trace and the cheat spans in
// step with them.
type executor struct {
	state    state.State
	cheats   *CheatnetState
	trace    *CallTrace
	block    BlockContext
	tx       TxContext
	maxSteps uint64
	log      utils.SimpleLogger
	handlers []SyscallHandler
}

func newExecutor(s state.State, log utils.SimpleLogger) *executor {
	e := &executor{
		state:    s,
		cheats:   NewCheatnetState(),
		trace:    NewCallTrace(),
		block:    DefaultBlockContext(),
		tx:       DefaultTxContext(),
		maxSteps: vm.DefaultMaxSteps,
		log:      log,
	}
	e.handlers = []SyscallHandler{&cheatableSyscalls{e: e}, &baseSyscalls{e: e}}
	return e
}

func (e *executor) executionInfo(f *Frame) *executionInfo {
	return &executionInfo{
		block:    &e.block,
		tx:       &e.tx,
		caller:   f.Call.CallerAddress,
		contract: f.Call.StorageAddress,
		selector: f.Call.Selector,
	}
}

// callOutcome is a completed call. call has its class hash resolved.
type callOutcome struct {
	call     EntryPointCall
	result   CallResult
	consumed uint64
}

// callContract runs a direct call against the class deployed at the storage
// address. The spans of the callee progress once the call completes.
func (e *executor) callContract(call EntryPointCall) (callOutcome, error) {
	addr := call.StorageAddress
	defer e.cheats.Progress(&addr)

	if call.EntryPointType == core.External {
		if data, found := e.cheats.consumeMock(&addr, &call.Selector); found {
			e.log.Debugw("Returning mocked data", "address", &addr, "selector", &call.Selector)
			result := Success(data)
			e.trace.enter(call)
			e.trace.exit(result, vm.NewExecutionResources(), 0)
			return callOutcome{call: call, result: result}, nil
		}
	}
	return e.execute(call, e.cheats.ResolveCheatedData(&addr))
}

// libraryCall runs a class in the context of the caller. cheated is the
// data of the calling frame and no span progresses.
func (e *executor) libraryCall(call EntryPointCall, cheated *CheatedData) (callOutcome, error) {
	return e.execute(call, *cheated)
}

// deploy computes the address of the contract and deploys it
func (e *executor) deploy(deployer, caller, classHash, salt *felt.Felt, calldata []felt.Felt,
	gas uint64,
) (felt.Felt, callOutcome, error) {
	addr := *core.ContractAddress(deployer, classHash, salt, calldata)
	out, err := e.deployAt(EntryPointCall{
		ClassHash:      *classHash,
		StorageAddress: addr,
		CallerAddress:  *caller,
		Selector:       core.ConstructorSelector,
		Calldata:       calldata,
		CallType:       CallTypeCall,
		EntryPointType: core.Constructor,
		InitialGas:     gas,
	})
	return addr, out, err
}

// deployAt binds the class to the storage address of call and runs its
// constructor
func (e *executor) deployAt(call EntryPointCall) (callOutcome, error) {
	failed := func(err error) (callOutcome, error) {
		if isFatal(err) {
			return callOutcome{}, err
		}
		return callOutcome{call: call, result: ErrorResult(stateError(err).Error())}, nil
	}

	class, err := e.state.Class(&call.ClassHash)
	if err != nil {
		return failed(err)
	}
	if !class.HasConstructor() && len(call.Calldata) > 0 {
		return callOutcome{call: call, result: ErrorResult(ErrConstructorCalldata.Error())}, nil
	}
	if err = state.DeployContract(e.state, &call.StorageAddress, &call.ClassHash); err != nil {
		return failed(err)
	}
	e.log.Debugw("Deployed contract", "address", &call.StorageAddress, "classHash", &call.ClassHash)

	if !class.HasConstructor() {
		e.trace.pushMarker(NodeDeployWithoutConstructor, call)
		return callOutcome{call: call, result: Success(nil)}, nil
	}
	return e.callContract(call)
}

// execute runs call under a new trace node
func (e *executor) execute(call EntryPointCall, cheated CheatedData) (callOutcome, error) {
	node := e.trace.enter(call)
	res, runErr := e.run(&call, cheated, node)
	e.trace.Node(node).EntryPoint = call

	result, err := classify(res, runErr)
	if err != nil {
		e.trace.exit(ErrorResult(err.Error()), vm.NewExecutionResources(), 0)
		return callOutcome{}, err
	}

	resources := vm.NewExecutionResources()
	var consumed uint64
	if res != nil {
		resources = res.Resources
		consumed = res.GasConsumed(call.InitialGas)
	}
	e.trace.exit(result, resources, consumed)

	if !result.IsSuccess() {
		e.log.Debugw("Call failed", "address", &call.StorageAddress, "selector", &call.Selector,
			"failure", result.Failure.String())
	}
	return callOutcome{call: call, result: result, consumed: consumed}, nil
}

func (e *executor) run(call *EntryPointCall, cheated CheatedData, node int) (*vm.Result, error) {
	if call.CallType == CallTypeCall {
		classHash, err := e.state.ContractClassHash(&call.StorageAddress)
		if err != nil {
			return nil, stateError(err)
		}
		if classHash.IsZero() {
			return nil, e.preExecutionError(ErrUninitializedStorageAddress, call)
		}
		if replaced, found := e.cheats.replacedClass(&call.StorageAddress); found {
			classHash = replaced
		}
		call.ClassHash = classHash
	}

	if e.tx.Version.IsZero() && call.ClassHash.Equal(core.FaultyClassHash) {
		return nil, e.preExecutionError(ErrFraudAttempt, call)
	}
	class, err := e.state.Class(&call.ClassHash)
	if err != nil {
		return nil, stateError(err)
	}
	ep, found := class.EntryPoint(call.EntryPointType, &call.Selector)
	if !found {
		return nil, e.preExecutionError(ErrEntryPointNotFound, call)
	}

	frame := &Frame{Call: *call, Cheated: cheated, Node: node}
	e.log.Debugw("Executing entry point", "address", &call.StorageAddress, "classHash", &call.ClassHash,
		"selector", &call.Selector, "type", call.EntryPointType, "callType", call.CallType)
	return vm.Run(&vm.CallInput{
		Class:      class,
		EntryPoint: ep,
		Calldata:   call.Calldata,
		InitialGas: call.InitialGas,
		MaxSteps:   e.maxSteps,
	}, NewInterceptor(frame, e.trace, e.handlers...))
}

func (e *executor) preExecutionError(err error, call *EntryPointCall) *PreExecutionError {
	return &PreExecutionError{
		Err:       err,
		Address:   call.StorageAddress,
		ClassHash: call.ClassHash,
		Selector:  call.Selector,
	}
}
