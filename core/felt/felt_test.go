package felt_test

import (
	"testing"

	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalJson(t *testing.T) {
	var with felt.Felt
	require.NoError(t, with.UnmarshalJSON([]byte("0x4437ab")))

	var without felt.Felt
	require.NoError(t, without.UnmarshalJSON([]byte("4437ab")))
	assert.True(t, without.Equal(&with))

	var quoted felt.Felt
	require.NoError(t, quoted.UnmarshalJSON([]byte(`"0x4437ab"`)))
	assert.True(t, quoted.Equal(&with))
}

func TestMarshalJson(t *testing.T) {
	f := felt.FromUint64(0xabc)
	b, err := f.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"0xabc"`, string(b))
}

func TestFeltCbor(t *testing.T) {
	var val felt.Felt
	_, err := val.SetRandom()
	require.NoError(t, err)

	bytes, err := cbor.Marshal(val)
	require.NoError(t, err)

	var unmarshaled felt.Felt
	require.NoError(t, cbor.Unmarshal(bytes, &unmarshaled))
	assert.Equal(t, val, unmarshaled)
}

func TestUint64(t *testing.T) {
	f := felt.FromUint64(42)
	v, err := f.Uint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)

	big := felt.NewUnsafeFromString("0x10000000000000000")
	_, err = big.Uint64()
	require.ErrorIs(t, err, felt.ErrOverflow)
}

func TestString(t *testing.T) {
	assert.Equal(t, "0x0", felt.Zero.String())
	f := felt.NewUnsafeFromString("0x1234567890abcdef1234567890abcdef")
	assert.Equal(t, "0x1234567890abcdef1234567890abcdef", f.String())
	assert.Equal(t, "0x12345678...90abcdef", f.ShortString())
}

func TestArithmetic(t *testing.T) {
	a := felt.FromUint64(10)
	b := felt.FromUint64(3)

	assert.Equal(t, felt.FromUint64(13), *new(felt.Felt).Add(&a, &b))
	assert.Equal(t, felt.FromUint64(7), *new(felt.Felt).Sub(&a, &b))
	assert.Equal(t, felt.FromUint64(30), *new(felt.Felt).Mul(&a, &b))
	assert.Equal(t, 1, a.Cmp(&b))
	assert.True(t, felt.One.IsOne())
}
