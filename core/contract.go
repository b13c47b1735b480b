package core

import (
	"github.com/NethermindEth/cheatnet/core/crypto"
	"github.com/NethermindEth/cheatnet/core/felt"
)

var (
	contractAddressPrefix = new(felt.Felt).SetBytes([]byte("STARKNET_CONTRACT_ADDRESS"))

	// BlockHashContractAddress stores historical block hashes keyed by block number.
	BlockHashContractAddress = felt.FromUint64(1)
)

// ContractAddress computes the address of a Starknet contract.
func ContractAddress(callerAddress, classHash, salt *felt.Felt, constructorCallData []felt.Felt) *felt.Felt {
	callData := make([]*felt.Felt, len(constructorCallData))
	for i := range constructorCallData {
		callData[i] = &constructorCallData[i]
	}
	callDataHash := crypto.PedersenArray(callData...)

	// https://docs.starknet.io/documentation/architecture_and_concepts/Contracts/contract-address
	return crypto.PedersenArray(
		contractAddressPrefix,
		callerAddress,
		salt,
		classHash,
		callDataHash,
	)
}
