package core

import (
	"github.com/NethermindEth/cheatnet/core/crypto"
	"github.com/NethermindEth/cheatnet/core/felt"
)

var (
	ConstructorSelector       = Selector("constructor")
	DefaultEntryPointSelector = felt.Zero
)

// Selector returns the entry point selector of a function name
func Selector(name string) felt.Felt {
	f, err := crypto.StarknetKeccak([]byte(name))
	if err != nil {
		// keccak writes never fail
		panic(err)
	}
	return *f
}
