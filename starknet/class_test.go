package starknet_test

import (
	"encoding/json"
	"testing"

	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/starknet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassDefinitionUnmarshal(t *testing.T) {
	t.Run("sierra", func(t *testing.T) {
		raw := `{
			"sierra_program": ["0x1", "0x2"],
			"contract_class_version": "0.1.0",
			"entry_points_by_type": {
				"EXTERNAL": [{"selector": "0x10", "function_idx": 1}],
				"L1_HANDLER": [],
				"CONSTRUCTOR": []
			},
			"abi": "[]"
		}`
		var def starknet.ClassDefinition
		require.NoError(t, json.Unmarshal([]byte(raw), &def))
		require.NotNil(t, def.Sierra)
		assert.Nil(t, def.DeprecatedCairo)
		assert.Equal(t, "0.1.0", def.Sierra.Version)
		assert.Len(t, def.Sierra.Program, 2)
		assert.Equal(t, uint64(1), def.Sierra.EntryPoints.External[0].Index)
	})

	t.Run("cairo 0", func(t *testing.T) {
		raw := `{"program": "H4sIAAAA", "entry_points_by_type": {"EXTERNAL": [], "L1_HANDLER": [], "CONSTRUCTOR": []}, "abi": []}`
		var def starknet.ClassDefinition
		require.NoError(t, json.Unmarshal([]byte(raw), &def))
		assert.Nil(t, def.Sierra)
		assert.NotNil(t, def.DeprecatedCairo)
	})

	t.Run("unknown", func(t *testing.T) {
		var def starknet.ClassDefinition
		require.ErrorIs(t, json.Unmarshal([]byte(`{"foo": 1}`), &def), starknet.ErrUnknownClassFormat)
	})
}

func TestBlockIDJSON(t *testing.T) {
	tests := map[string]struct {
		id   starknet.BlockID
		json string
	}{
		"latest": {id: starknet.LatestBlock(), json: `"latest"`},
		"number": {id: starknet.BlockNumber(100), json: `{"block_number":100}`},
		"hash":   {id: starknet.BlockHash(felt.NewUnsafeFromString("0xabc")), json: `{"block_hash":"0xabc"}`},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			b, err := json.Marshal(test.id)
			require.NoError(t, err)
			assert.JSONEq(t, test.json, string(b))

			var decoded starknet.BlockID
			require.NoError(t, json.Unmarshal(b, &decoded))
			assert.Equal(t, test.id, decoded)
		})
	}

	assert.Equal(t, "100", starknet.BlockNumber(100).String())
}
