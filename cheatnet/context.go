package cheatnet

import (
	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
)

const (
	DefaultBlockNumber    = 2000
	DefaultBlockTimestamp = 0
	// DefaultInitialGas is the gas each harness call starts with
	DefaultInitialGas = 1_000_000_000
)

var (
	// TestAddress is the address of the test itself: the caller of harness
	// calls and the storage address of harness library calls.
	TestAddress = felt.NewUnsafeFromString("0x01724987234973219347210837402")

	DefaultSequencerAddress = felt.NewUnsafeFromString("0x1000")
	DefaultChainID          = core.MustEncodeShortString("SN_SEPOLIA")
)

// BlockContext is the block the test executes in.
type BlockContext struct {
	Number           uint64
	Timestamp        uint64
	SequencerAddress felt.Felt
}

func DefaultBlockContext() BlockContext {
	return BlockContext{
		Number:           DefaultBlockNumber,
		Timestamp:        DefaultBlockTimestamp,
		SequencerAddress: *DefaultSequencerAddress,
	}
}

// TxContext is the transaction the test executes in. ResourceBounds is
// flattened into (resource, max amount, max price per unit) triples.
type TxContext struct {
	Version                   felt.Felt
	AccountContractAddress    felt.Felt
	MaxFee                    felt.Felt
	Signature                 []felt.Felt
	TransactionHash           felt.Felt
	ChainID                   felt.Felt
	Nonce                     felt.Felt
	ResourceBounds            []felt.Felt
	Tip                       felt.Felt
	PaymasterData             []felt.Felt
	NonceDataAvailabilityMode felt.Felt
	FeeDataAvailabilityMode   felt.Felt
	AccountDeploymentData     []felt.Felt
}

func DefaultTxContext() TxContext {
	return TxContext{
		Version:         felt.One,
		ChainID:         DefaultChainID,
		TransactionHash: felt.Zero,
	}
}

// value returns the field as a Value, nil for fields outside the tx info
func (t *TxContext) value(f Field) Value {
	switch f {
	case TxVersion:
		return Value{t.Version}
	case AccountContractAddress:
		return Value{t.AccountContractAddress}
	case MaxFee:
		return Value{t.MaxFee}
	case Signature:
		return t.Signature
	case TransactionHash:
		return Value{t.TransactionHash}
	case ChainID:
		return Value{t.ChainID}
	case Nonce:
		return Value{t.Nonce}
	case ResourceBounds:
		return t.ResourceBounds
	case Tip:
		return Value{t.Tip}
	case PaymasterData:
		return t.PaymasterData
	case NonceDataAvailabilityMode:
		return Value{t.NonceDataAvailabilityMode}
	case FeeDataAvailabilityMode:
		return Value{t.FeeDataAvailabilityMode}
	case AccountDeploymentData:
		return t.AccountDeploymentData
	default:
		return nil
	}
}
