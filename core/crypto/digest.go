package crypto

import "github.com/NethermindEth/cheatnet/core/felt"

// Digest accumulates felts into a single hash
type Digest interface {
	Update(...*felt.Felt) Digest
	Finish() *felt.Felt
}
