package core_test

import (
	"strings"
	"testing"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortString(t *testing.T) {
	f, err := core.EncodeShortString("Out of gas")
	require.NoError(t, err)
	assert.Equal(t, *felt.NewUnsafeFromString("0x4f7574206f6620676173"), f)

	s, ok := core.DecodeShortString(&f)
	require.True(t, ok)
	assert.Equal(t, "Out of gas", s)

	_, err = core.EncodeShortString(strings.Repeat("a", 32))
	require.ErrorIs(t, err, core.ErrShortStringTooLong)

	nonPrintable := felt.FromUint64(0x01ff)
	_, ok = core.DecodeShortString(&nonPrintable)
	assert.False(t, ok)
	_, ok = core.DecodeShortString(&felt.Zero)
	assert.False(t, ok)
}

func TestByteArray(t *testing.T) {
	tests := map[string]struct {
		input string
		len   int
	}{
		"empty":       {input: "", len: 3},
		"short":       {input: "hello", len: 3},
		"exact word":  {input: strings.Repeat("x", 31), len: 4},
		"multi words": {input: strings.Repeat("abc", 25), len: 5},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			encoded := core.EncodeByteArray(test.input)
			require.Len(t, encoded, test.len)

			// trailing data is left untouched
			encoded = append(encoded, felt.FromUint64(7))
			decoded, consumed, err := core.DecodeByteArray(encoded)
			require.NoError(t, err)
			assert.Equal(t, test.input, decoded)
			assert.Equal(t, test.len, consumed)
		})
	}

	t.Run("truncated", func(t *testing.T) {
		_, _, err := core.DecodeByteArray([]felt.Felt{felt.FromUint64(2), felt.FromUint64(1)})
		require.ErrorIs(t, err, core.ErrMalformedByteArray)
	})
}

func TestPanicReason(t *testing.T) {
	assert.Equal(t, []felt.Felt{core.MustEncodeShortString("Failed to deserialize param #99")},
		core.PanicReason("Failed to deserialize param #99"))

	long := core.PanicReason("Failed to deserialize param #100")
	require.True(t, long[0].Equal(core.ByteArrayMagic))
	decoded, consumed, err := core.DecodeByteArray(long[1:])
	require.NoError(t, err)
	assert.Equal(t, "Failed to deserialize param #100", decoded)
	assert.Equal(t, len(long)-1, consumed)
}
