// Package cheatnet executes contract entry points for tests while letting
// the test override the execution context and the state of contracts.
package cheatnet

import (
	"context"
	"errors"
	"fmt"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/forking"
	"github.com/NethermindEth/cheatnet/state"
	"github.com/NethermindEth/cheatnet/utils"
)

var ErrAddressTaken = errors.New("address is already taken")

// Runtime is the entry point of a test into cheatnet. A Runtime belongs to
// one test and is not safe for concurrent use.
type Runtime struct {
	e          *executor
	initialGas uint64
}

func New(s state.State) *Runtime {
	return &Runtime{
		e:          newExecutor(s, utils.NewNopZapLogger()),
		initialGas: DefaultInitialGas,
	}
}

// NewForked executes against the fork of cache. The block context defaults
// to the header of the fork block.
func NewForked(ctx context.Context, cache *forking.Cache) (*Runtime, error) {
	header, err := cache.BlockHeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch fork block header: %w", err)
	}

	block := BlockContext{Number: header.Number, Timestamp: header.Timestamp}
	if header.SequencerAddress != nil {
		block.SequencerAddress = *header.SequencerAddress
	}
	return New(forking.NewState(ctx, cache)).WithBlockContext(block), nil
}

func (r *Runtime) WithLogger(log utils.SimpleLogger) *Runtime {
	r.e.log = log
	return r
}

func (r *Runtime) WithBlockContext(block BlockContext) *Runtime {
	r.e.block = block
	return r
}

func (r *Runtime) WithTxContext(tx TxContext) *Runtime {
	r.e.tx = tx
	return r
}

func (r *Runtime) WithInitialGas(gas uint64) *Runtime {
	r.initialGas = gas
	return r
}

func (r *Runtime) WithMaxSteps(steps uint64) *Runtime {
	r.e.maxSteps = steps
	return r
}

func (r *Runtime) State() state.State {
	return r.e.state
}

func (r *Runtime) Cheats() *CheatnetState {
	return r.e.cheats
}

func (r *Runtime) Trace() *CallTrace {
	return r.e.trace
}

func (r *Runtime) BlockContext() BlockContext {
	return r.e.block
}

// Declare makes class available for deployment and returns its hash
func (r *Runtime) Declare(class *core.SierraClass) (felt.Felt, error) {
	classHash, err := class.Hash()
	if err != nil {
		return felt.Zero, fmt.Errorf("hash class: %w", err)
	}
	if err = r.e.state.DeclareClass(classHash, class.Compiled.Hash(), class.Compiled); err != nil {
		return felt.Zero, err
	}
	r.e.log.Debugw("Declared class", "classHash", classHash)
	return *classHash, nil
}

// Deploy deploys classHash from the test address. A nil salt uses the deploy
// salt base, which then moves on.
func (r *Runtime) Deploy(classHash, salt *felt.Felt, calldata []felt.Felt, fromZero bool) (felt.Felt, CallResult, error) {
	if salt == nil {
		base := r.e.cheats.DeploySaltBase()
		salt = &base
		r.e.cheats.incrementDeploySaltBase()
	}
	deployer := *TestAddress
	if fromZero {
		deployer = felt.Zero
	}
	addr, out, err := r.e.deploy(&deployer, TestAddress, classHash, salt, calldata, r.initialGas)
	return addr, atBoundary(out.result), err
}

// PrecalculateAddress returns the address the next saltless Deploy of
// classHash with calldata will use
func (r *Runtime) PrecalculateAddress(classHash *felt.Felt, calldata []felt.Felt) felt.Felt {
	salt := r.e.cheats.DeploySaltBase()
	return *core.ContractAddress(TestAddress, classHash, &salt, calldata)
}

// DeployAt deploys classHash at a chosen address
func (r *Runtime) DeployAt(classHash *felt.Felt, calldata []felt.Felt, addr *felt.Felt) (CallResult, error) {
	current, err := r.e.state.ContractClassHash(addr)
	if err != nil {
		return CallResult{}, err
	}
	if !current.IsZero() {
		return CallResult{}, fmt.Errorf("%w: %s", ErrAddressTaken, addr)
	}
	r.e.cheats.incrementDeploySaltBase()

	out, err := r.e.deployAt(EntryPointCall{
		ClassHash:      *classHash,
		StorageAddress: *addr,
		CallerAddress:  *TestAddress,
		Selector:       core.ConstructorSelector,
		Calldata:       calldata,
		CallType:       CallTypeCall,
		EntryPointType: core.Constructor,
		InitialGas:     r.initialGas,
	})
	return atBoundary(out.result), err
}

// CallEntryPoint calls an external function of the contract at addr from
// the test address
func (r *Runtime) CallEntryPoint(addr, selector *felt.Felt, calldata []felt.Felt) (CallResult, error) {
	out, err := r.e.callContract(EntryPointCall{
		StorageAddress: *addr,
		CallerAddress:  *TestAddress,
		Selector:       *selector,
		Calldata:       calldata,
		CallType:       CallTypeCall,
		EntryPointType: core.External,
		InitialGas:     r.initialGas,
	})
	return atBoundary(out.result), err
}

// LibraryCall runs an external function of classHash in the context of the
// test address
func (r *Runtime) LibraryCall(classHash, selector *felt.Felt, calldata []felt.Felt) (CallResult, error) {
	cheated := r.e.cheats.ResolveCheatedData(TestAddress)
	out, err := r.e.libraryCall(EntryPointCall{
		ClassHash:      *classHash,
		StorageAddress: *TestAddress,
		CallerAddress:  felt.Zero,
		Selector:       *selector,
		Calldata:       calldata,
		CallType:       CallTypeDelegate,
		EntryPointType: core.External,
		InitialGas:     r.initialGas,
	}, &cheated)
	return atBoundary(out.result), err
}

// L1HandlerExecute delivers an L1 message from fromAddress to the handler
// selector of the contract at addr
func (r *Runtime) L1HandlerExecute(addr, fromAddress, selector *felt.Felt, payload []felt.Felt) (CallResult, error) {
	calldata := make([]felt.Felt, 0, len(payload)+1)
	calldata = append(calldata, *fromAddress)
	calldata = append(calldata, payload...)

	out, err := r.e.callContract(EntryPointCall{
		StorageAddress: *addr,
		CallerAddress:  felt.Zero,
		Selector:       *selector,
		Calldata:       calldata,
		CallType:       CallTypeCall,
		EntryPointType: core.L1Handler,
		InitialGas:     r.initialGas,
	})
	return atBoundary(out.result), err
}

func (r *Runtime) Cheat(target CheatTarget, field Field, value Value, span CheatSpan) error {
	return r.e.cheats.Cheat(target, field, value, span)
}

func (r *Runtime) StopCheat(target CheatTarget, field Field) {
	r.e.cheats.StopCheat(target, field)
}

func (r *Runtime) MockCall(addr, selector *felt.Felt, data []felt.Felt, span CheatSpan) error {
	return r.e.cheats.MockCall(addr, selector, data, span)
}

func (r *Runtime) StopMockCall(addr, selector *felt.Felt) {
	r.e.cheats.StopMockCall(addr, selector)
}

// ReplaceBytecode makes calls to the deployed contract at addr run the
// declared class classHash
func (r *Runtime) ReplaceBytecode(addr, classHash *felt.Felt) error {
	current, err := r.e.state.ContractClassHash(addr)
	if err != nil {
		return err
	}
	if current.IsZero() {
		return fmt.Errorf("%w: %s", ErrUninitializedStorageAddress, addr)
	}
	if _, err = r.e.state.Class(classHash); err != nil {
		return err
	}
	r.e.cheats.ReplaceBytecode(addr, classHash)
	return nil
}

func (r *Runtime) StopReplaceBytecode(addr *felt.Felt) {
	r.e.cheats.StopReplaceBytecode(addr)
}

func (r *Runtime) SpyEvents() *EventSpy {
	return r.e.cheats.SpyEvents()
}

// Store writes a storage slot of addr without running any code
func (r *Runtime) Store(addr, key, value *felt.Felt) error {
	return r.e.state.SetStorage(addr, key, value)
}

func (r *Runtime) Load(addr, key *felt.Felt) (felt.Felt, error) {
	return r.e.state.ContractStorage(addr, key)
}

func (r *Runtime) SetNonce(addr, nonce *felt.Felt) error {
	return r.e.state.SetNonce(addr, nonce)
}

func (r *Runtime) Nonce(addr *felt.Felt) (felt.Felt, error) {
	return r.e.state.ContractNonce(addr)
}

func (r *Runtime) ClassHashAt(addr *felt.Felt) (felt.Felt, error) {
	return r.e.state.ContractClassHash(addr)
}

// SetBlockHash makes block number report hash to GetBlockHash
func (r *Runtime) SetBlockHash(number uint64, hash *felt.Felt) error {
	return state.SetBlockHash(r.e.state, number, hash)
}
