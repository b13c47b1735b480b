package starknet

import (
	"encoding/json"
	"errors"

	"github.com/NethermindEth/cheatnet/core/felt"
)

var ErrUnknownClassFormat = errors.New("unknown class definition format")

type EntryPoint struct {
	Selector *felt.Felt `json:"selector"`
	Offset   *felt.Felt `json:"offset"`
}

type SierraEntryPoints struct {
	Constructor []SierraEntryPoint `json:"CONSTRUCTOR"`
	External    []SierraEntryPoint `json:"EXTERNAL"`
	L1Handler   []SierraEntryPoint `json:"L1_HANDLER"`
}

type SierraClass struct {
	Abi         string            `json:"abi,omitempty"`
	EntryPoints SierraEntryPoints `json:"entry_points_by_type"`
	Program     []*felt.Felt      `json:"sierra_program"`
	Version     string            `json:"contract_class_version"`
}

type SierraEntryPoint struct {
	Index    uint64     `json:"function_idx"`
	Selector *felt.Felt `json:"selector"`
}

type EntryPoints struct {
	Constructor []EntryPoint `json:"CONSTRUCTOR"`
	External    []EntryPoint `json:"EXTERNAL"`
	L1Handler   []EntryPoint `json:"L1_HANDLER"`
}

// DeprecatedCairoClass is a Cairo 0 class. It is decoded only to be rejected
// with a precise error.
type DeprecatedCairoClass struct {
	Abi         json.RawMessage `json:"abi"`
	EntryPoints EntryPoints     `json:"entry_points_by_type"`
	Program     json.RawMessage `json:"program"`
}

// ClassDefinition holds exactly one of the two class flavours a node returns.
type ClassDefinition struct {
	DeprecatedCairo *DeprecatedCairoClass
	Sierra          *SierraClass
}

func (c *ClassDefinition) UnmarshalJSON(data []byte) error {
	jsonMap := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &jsonMap); err != nil {
		return err
	}

	if _, found := jsonMap["sierra_program"]; found {
		c.Sierra = new(SierraClass)
		return json.Unmarshal(data, c.Sierra)
	}
	if _, found := jsonMap["program"]; found {
		c.DeprecatedCairo = new(DeprecatedCairoClass)
		return json.Unmarshal(data, c.DeprecatedCairo)
	}
	return ErrUnknownClassFormat
}

func (c ClassDefinition) MarshalJSON() ([]byte, error) {
	if c.Sierra != nil {
		return json.Marshal(c.Sierra)
	}
	return json.Marshal(c.DeprecatedCairo)
}

// CasmClass is the executable output of the compiler.
type CasmClass struct {
	Bytecode        []*felt.Felt `json:"bytecode"`
	CompilerVersion string       `json:"compiler_version"`
	EntryPoints     struct {
		External    []CompiledEntryPoint `json:"EXTERNAL"`
		L1Handler   []CompiledEntryPoint `json:"L1_HANDLER"`
		Constructor []CompiledEntryPoint `json:"CONSTRUCTOR"`
	} `json:"entry_points_by_type"`
}

type CompiledEntryPoint struct {
	Selector *felt.Felt `json:"selector"`
	Offset   uint64     `json:"offset"`
	Builtins []string   `json:"builtins"`
}
