package cheatnet

import (
	"slices"

	"github.com/NethermindEth/cheatnet/core/felt"
)

type fieldStatuses [fieldCount]CheatStatus[Value]

// CheatnetState holds every cheat of a test run. It is owned by a single
// Runtime and is not safe for concurrent use.
type CheatnetState struct {
	global     fieldStatuses
	perAddress map[felt.Felt]*fieldStatuses

	mockedCalls      map[felt.Felt]map[felt.Felt]*CheatStatus[[]felt.Felt]
	replacedBytecode map[felt.Felt]felt.Felt

	events         []Event
	deploySaltBase uint64
}

func NewCheatnetState() *CheatnetState {
	return &CheatnetState{
		perAddress:       make(map[felt.Felt]*fieldStatuses),
		mockedCalls:      make(map[felt.Felt]map[felt.Felt]*CheatStatus[[]felt.Felt]),
		replacedBytecode: make(map[felt.Felt]felt.Felt),
	}
}

// Cheat overrides field for target. A new cheat replaces any previous one on
// the same field. Cheating All sets the global default and clears the
// per-address overrides of the field.
func (s *CheatnetState) Cheat(target CheatTarget, field Field, value Value, span CheatSpan) error {
	if err := field.validate(value); err != nil {
		return err
	}
	if err := span.validate(); err != nil {
		return err
	}

	value = slices.Clone(value)
	if target.all {
		if !span.indefinite {
			return ErrGlobalSpan
		}
		s.global[field] = Cheated(value, span)
		s.clearPerAddress(field)
		return nil
	}

	for i := range target.addrs {
		statuses, found := s.perAddress[target.addrs[i]]
		if !found {
			statuses = new(fieldStatuses)
			s.perAddress[target.addrs[i]] = statuses
		}
		statuses[field] = Cheated(value, span)
	}
	return nil
}

// StopCheat removes the override of field for target. Stopping All also
// removes every per-address override of the field. Addresses stopped
// individually fall back to the global value.
func (s *CheatnetState) StopCheat(target CheatTarget, field Field) {
	if !field.Valid() {
		return
	}
	if target.all {
		s.global[field] = Uncheated[Value]()
		s.clearPerAddress(field)
		return
	}
	for i := range target.addrs {
		if statuses, found := s.perAddress[target.addrs[i]]; found {
			statuses[field] = Uncheated[Value]()
		}
	}
}

func (s *CheatnetState) clearPerAddress(field Field) {
	for _, statuses := range s.perAddress {
		statuses[field] = Uncheated[Value]()
	}
}

// Effective returns the value addr observes for field: its own override,
// else the global one.
func (s *CheatnetState) Effective(addr *felt.Felt, field Field) (Value, bool) {
	if !field.Valid() {
		return nil, false
	}
	if statuses, found := s.perAddress[*addr]; found {
		if value, cheated := statuses[field].Get(); cheated {
			return value, true
		}
	}
	return s.global[field].Get()
}

// Status returns the per-address status of field, for inspection
func (s *CheatnetState) Status(addr *felt.Felt, field Field) CheatStatus[Value] {
	if statuses, found := s.perAddress[*addr]; found && field.Valid() {
		return statuses[field]
	}
	return Uncheated[Value]()
}

// Progress consumes one call from every active span on addr
func (s *CheatnetState) Progress(addr *felt.Felt) {
	statuses, found := s.perAddress[*addr]
	if !found {
		return
	}
	for i := range statuses {
		statuses[i].decrement()
	}
}

// ResolveCheatedData snapshots every effective override of addr
func (s *CheatnetState) ResolveCheatedData(addr *felt.Felt) CheatedData {
	var data CheatedData
	for _, f := range Fields() {
		if value, found := s.Effective(addr, f); found {
			data.Set(f, value)
		}
	}
	return data
}

// CheatedData is the set of overrides a call observes.
type CheatedData struct {
	values [fieldCount]Value
	set    [fieldCount]bool
}

func (d *CheatedData) Set(f Field, v Value) {
	d.values[f] = v
	d.set[f] = true
}

func (d *CheatedData) Get(f Field) (Value, bool) {
	if !f.Valid() {
		return nil, false
	}
	return d.values[f], d.set[f]
}

// has reports whether some field matching pred is overridden
func (d *CheatedData) has(pred func(Field) bool) bool {
	for i, set := range d.set {
		if set && pred(Field(i)) {
			return true
		}
	}
	return false
}

func (d *CheatedData) IsEmpty() bool {
	return !d.has(func(Field) bool { return true })
}

// MockCall makes direct calls to (addr, selector) return data without
// executing the contract.
func (s *CheatnetState) MockCall(addr, selector *felt.Felt, data []felt.Felt, span CheatSpan) error {
	if err := span.validate(); err != nil {
		return err
	}
	mocks, found := s.mockedCalls[*addr]
	if !found {
		mocks = make(map[felt.Felt]*CheatStatus[[]felt.Felt])
		s.mockedCalls[*addr] = mocks
	}
	status := Cheated(slices.Clone(data), span)
	mocks[*selector] = &status
	return nil
}

func (s *CheatnetState) StopMockCall(addr, selector *felt.Felt) {
	if mocks, found := s.mockedCalls[*addr]; found {
		delete(mocks, *selector)
	}
}

// consumeMock returns the mocked data of (addr, selector), using up one call
// of its span
func (s *CheatnetState) consumeMock(addr, selector *felt.Felt) ([]felt.Felt, bool) {
	status, found := s.mockedCalls[*addr][*selector]
	if !found {
		return nil, false
	}
	data, cheated := status.Get()
	if !cheated {
		return nil, false
	}
	status.decrement()
	if !status.IsCheated() {
		delete(s.mockedCalls[*addr], *selector)
	}
	return data, true
}

// ReplaceBytecode makes direct calls to addr run classHash instead of the
// deployed class
func (s *CheatnetState) ReplaceBytecode(addr, classHash *felt.Felt) {
	s.replacedBytecode[*addr] = *classHash
}

func (s *CheatnetState) StopReplaceBytecode(addr *felt.Felt) {
	delete(s.replacedBytecode, *addr)
}

func (s *CheatnetState) replacedClass(addr *felt.Felt) (felt.Felt, bool) {
	classHash, found := s.replacedBytecode[*addr]
	return classHash, found
}

// Event is an event emitted by a contract.
type Event struct {
	From felt.Felt
	Keys []felt.Felt
	Data []felt.Felt
}

// EventSpy collects the events emitted after it was created.
type EventSpy struct {
	state *CheatnetState
	next  int
}

func (s *CheatnetState) SpyEvents() *EventSpy {
	return &EventSpy{state: s, next: len(s.events)}
}

// Fetch returns the events emitted since the previous fetch
func (e *EventSpy) Fetch() []Event {
	events := slices.Clone(e.state.events[e.next:])
	e.next = len(e.state.events)
	return events
}

func (s *CheatnetState) recordEvent(ev Event) {
	s.events = append(s.events, ev)
}

// DeploySaltBase is the salt the next deploy without an explicit salt uses
func (s *CheatnetState) DeploySaltBase() felt.Felt {
	return felt.FromUint64(s.deploySaltBase)
}

func (s *CheatnetState) incrementDeploySaltBase() {
	s.deploySaltBase++
}

func (s *CheatnetState) CheatCallerAddress(target CheatTarget, caller *felt.Felt, span CheatSpan) error {
	return s.Cheat(target, CallerAddress, Scalar(caller), span)
}

func (s *CheatnetState) CheatBlockNumber(target CheatTarget, number uint64, span CheatSpan) error {
	return s.Cheat(target, BlockNumber, ScalarUint64(number), span)
}

func (s *CheatnetState) CheatBlockTimestamp(target CheatTarget, timestamp uint64, span CheatSpan) error {
	return s.Cheat(target, BlockTimestamp, ScalarUint64(timestamp), span)
}

func (s *CheatnetState) CheatSequencerAddress(target CheatTarget, sequencer *felt.Felt, span CheatSpan) error {
	return s.Cheat(target, SequencerAddress, Scalar(sequencer), span)
}

func (s *CheatnetState) CheatTxVersion(target CheatTarget, version *felt.Felt, span CheatSpan) error {
	return s.Cheat(target, TxVersion, Scalar(version), span)
}

func (s *CheatnetState) CheatAccountContractAddress(target CheatTarget, account *felt.Felt, span CheatSpan) error {
	return s.Cheat(target, AccountContractAddress, Scalar(account), span)
}

func (s *CheatnetState) CheatMaxFee(target CheatTarget, maxFee *felt.Felt, span CheatSpan) error {
	return s.Cheat(target, MaxFee, Scalar(maxFee), span)
}

func (s *CheatnetState) CheatSignature(target CheatTarget, signature []felt.Felt, span CheatSpan) error {
	return s.Cheat(target, Signature, signature, span)
}

func (s *CheatnetState) CheatTransactionHash(target CheatTarget, hash *felt.Felt, span CheatSpan) error {
	return s.Cheat(target, TransactionHash, Scalar(hash), span)
}

func (s *CheatnetState) CheatChainID(target CheatTarget, chainID *felt.Felt, span CheatSpan) error {
	return s.Cheat(target, ChainID, Scalar(chainID), span)
}

func (s *CheatnetState) CheatNonce(target CheatTarget, nonce *felt.Felt, span CheatSpan) error {
	return s.Cheat(target, Nonce, Scalar(nonce), span)
}

func (s *CheatnetState) CheatResourceBounds(target CheatTarget, bounds []ResourceBound, span CheatSpan) error {
	return s.Cheat(target, ResourceBounds, resourceBoundsValue(bounds), span)
}

func (s *CheatnetState) CheatTip(target CheatTarget, tip *felt.Felt, span CheatSpan) error {
	return s.Cheat(target, Tip, Scalar(tip), span)
}

func (s *CheatnetState) CheatPaymasterData(target CheatTarget, data []felt.Felt, span CheatSpan) error {
	return s.Cheat(target, PaymasterData, data, span)
}

func (s *CheatnetState) CheatNonceDataAvailabilityMode(target CheatTarget, mode *felt.Felt, span CheatSpan) error {
	return s.Cheat(target, NonceDataAvailabilityMode, Scalar(mode), span)
}

func (s *CheatnetState) CheatFeeDataAvailabilityMode(target CheatTarget, mode *felt.Felt, span CheatSpan) error {
	return s.Cheat(target, FeeDataAvailabilityMode, Scalar(mode), span)
}

func (s *CheatnetState) CheatAccountDeploymentData(target CheatTarget, data []felt.Felt, span CheatSpan) error {
	return s.Cheat(target, AccountDeploymentData, data, span)
}
