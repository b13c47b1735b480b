package cheatnet

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/NethermindEth/cheatnet/core/felt"
)

var (
	ErrInvalidCheatSpan  = errors.New("cheat span must target at least one call")
	ErrGlobalSpan        = errors.New("global cheats must be indefinite")
	ErrInvalidCheatValue = errors.New("invalid cheat value")
	ErrUnknownField      = errors.New("unknown cheat field")
)

// Field is a cheatable part of the execution info.
type Field uint8

const (
	CallerAddress Field = iota
	BlockNumber
	BlockTimestamp
	SequencerAddress
	TxVersion
	AccountContractAddress
	MaxFee
	Signature
	TransactionHash
	ChainID
	Nonce
	ResourceBounds
	Tip
	PaymasterData
	NonceDataAvailabilityMode
	FeeDataAvailabilityMode
	AccountDeploymentData
	fieldCount
)

var fieldNames = [fieldCount]string{
	CallerAddress:             "caller_address",
	BlockNumber:               "block_number",
	BlockTimestamp:            "block_timestamp",
	SequencerAddress:          "sequencer_address",
	TxVersion:                 "version",
	AccountContractAddress:    "account_contract_address",
	MaxFee:                    "max_fee",
	Signature:                 "signature",
	TransactionHash:           "transaction_hash",
	ChainID:                   "chain_id",
	Nonce:                     "nonce",
	ResourceBounds:            "resource_bounds",
	Tip:                       "tip",
	PaymasterData:             "paymaster_data",
	NonceDataAvailabilityMode: "nonce_data_availability_mode",
	FeeDataAvailabilityMode:   "fee_data_availability_mode",
	AccountDeploymentData:     "account_deployment_data",
}

// Fields lists every cheatable field
func Fields() []Field {
	fields := make([]Field, fieldCount)
	for i := range fields {
		fields[i] = Field(i)
	}
	return fields
}

func (f Field) Valid() bool {
	return f < fieldCount
}

func (f Field) String() string {
	if !f.Valid() {
		return "Field(" + strconv.Itoa(int(f)) + ")"
	}
	return fieldNames[f]
}

// IsSpan reports whether the field is stored as a (start, end) range
func (f Field) IsSpan() bool {
	switch f {
	case Signature, ResourceBounds, PaymasterData, AccountDeploymentData:
		return true
	default:
		return false
	}
}

func (f Field) isBlockInfo() bool {
	return f == BlockNumber || f == BlockTimestamp || f == SequencerAddress
}

func (f Field) isTxInfo() bool {
	return f >= TxVersion && f < fieldCount
}

// Value is the override of a field: one element for scalar fields, the full
// contents for span fields.
type Value []felt.Felt

func Scalar(v *felt.Felt) Value {
	return Value{*v}
}

func ScalarUint64(v uint64) Value {
	return Value{felt.FromUint64(v)}
}

func (f Field) validate(v Value) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownField, uint8(f))
	}
	switch {
	case f == ResourceBounds:
		if len(v)%resourceBoundSize != 0 {
			return fmt.Errorf("%w: %s needs a multiple of %d elements, got %d", ErrInvalidCheatValue, f, resourceBoundSize, len(v))
		}
	case f.IsSpan():
	case len(v) != 1:
		return fmt.Errorf("%w: %s needs 1 element, got %d", ErrInvalidCheatValue, f, len(v))
	case f == BlockNumber || f == BlockTimestamp:
		if _, err := v[0].Uint64(); err != nil {
			return fmt.Errorf("%w: %s must fit into u64", ErrInvalidCheatValue, f)
		}
	}
	return nil
}

const resourceBoundSize = 3

// ResourceBound limits one fee resource of a transaction.
type ResourceBound struct {
	Resource        felt.Felt
	MaxAmount       uint64
	MaxPricePerUnit felt.Felt
}

func resourceBoundsValue(bounds []ResourceBound) Value {
	v := make(Value, 0, len(bounds)*resourceBoundSize)
	for _, b := range bounds {
		v = append(v, b.Resource, felt.FromUint64(b.MaxAmount), b.MaxPricePerUnit)
	}
	return v
}

// CheatTarget selects the contracts a cheat applies to.
type CheatTarget struct {
	all   bool
	addrs []felt.Felt
}

func All() CheatTarget {
	return CheatTarget{all: true}
}

func One(addr *felt.Felt) CheatTarget {
	return CheatTarget{addrs: []felt.Felt{*addr}}
}

func Multiple(addrs ...felt.Felt) CheatTarget {
	return CheatTarget{addrs: addrs}
}

func (t CheatTarget) IsAll() bool {
	return t.all
}

func (t CheatTarget) Addresses() []felt.Felt {
	return t.addrs
}

// CheatSpan is how long a cheat stays active. The zero value targets no
// call and is rejected.
type CheatSpan struct {
	indefinite bool
	calls      uint64
}

func Indefinite() CheatSpan {
	return CheatSpan{indefinite: true}
}

// TargetCalls keeps the cheat for the next n direct calls to the target
func TargetCalls(n uint64) CheatSpan {
	return CheatSpan{calls: n}
}

func (s CheatSpan) IsIndefinite() bool {
	return s.indefinite
}

// Remaining returns the calls left, ok is false for indefinite spans
func (s CheatSpan) Remaining() (uint64, bool) {
	return s.calls, !s.indefinite
}

func (s CheatSpan) validate() error {
	if !s.indefinite && s.calls == 0 {
		return ErrInvalidCheatSpan
	}
	return nil
}

func (s CheatSpan) String() string {
	if s.indefinite {
		return "Indefinite"
	}
	return "TargetCalls(" + strconv.FormatUint(s.calls, 10) + ")"
}

// CheatStatus is either uncheated or a value with the span it is active for.
type CheatStatus[T any] struct {
	value   T
	span    CheatSpan
	cheated bool
}

func Uncheated[T any]() CheatStatus[T] {
	return CheatStatus[T]{}
}

func Cheated[T any](value T, span CheatSpan) CheatStatus[T] {
	return CheatStatus[T]{value: value, span: span, cheated: true}
}

func (s CheatStatus[T]) Get() (T, bool) {
	return s.value, s.cheated
}

func (s CheatStatus[T]) Span() CheatSpan {
	return s.span
}

func (s CheatStatus[T]) IsCheated() bool {
	return s.cheated
}

// decrement consumes one call of the span, reverting to uncheated when it
// runs out
func (s *CheatStatus[T]) decrement() {
	if !s.cheated || s.span.indefinite {
		return
	}
	s.span.calls--
	if s.span.calls == 0 {
		*s = Uncheated[T]()
	}
}
