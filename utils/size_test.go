package utils_test

import (
	"testing"

	"github.com/NethermindEth/cheatnet/utils"
	"github.com/stretchr/testify/assert"
)

func TestDataSize(t *testing.T) {
	tests := map[utils.DataSize]string{
		0:               "0 B",
		512:             "512 B",
		1536:            "1.50 KiB",
		3 * utils.MiB:   "3.00 MiB",
		utils.GiB + 1:   "1.00 GiB",
		2.5 * utils.TiB: "2.50 TiB",
	}

	for size, want := range tests {
		assert.Equal(t, want, size.String())
	}
}
