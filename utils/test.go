package utils

import (
	"testing"

	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/stretchr/testify/require"
)

func HexToFelt(t testing.TB, hex string) *felt.Felt {
	t.Helper()

	f, err := new(felt.Felt).SetString(hex)
	require.NoError(t, err)
	return f
}

func HexToFelts(t testing.TB, hexes ...string) []felt.Felt {
	t.Helper()

	out := make([]felt.Felt, len(hexes))
	for i, hex := range hexes {
		out[i] = *HexToFelt(t, hex)
	}
	return out
}
