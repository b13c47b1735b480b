package core_test

import (
	"testing"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompiledClassEntryPoint(t *testing.T) {
	sel := core.Selector("increase_balance")
	class := &core.CompiledClass{
		Bytecode: []felt.Felt{felt.FromUint64(1)},
		EntryPoints: core.CompiledEntryPoints{
			External: []core.CompiledEntryPoint{{Selector: sel, Offset: 0}},
		},
	}

	ep, ok := class.EntryPoint(core.External, &sel)
	require.True(t, ok)
	assert.Equal(t, uint64(0), ep.Offset)

	_, ok = class.EntryPoint(core.L1Handler, &sel)
	assert.False(t, ok)
	assert.False(t, class.HasConstructor())
}

func TestClassHashesAreContentAddressed(t *testing.T) {
	newClass := func(program ...uint64) *core.SierraClass {
		felts := make([]felt.Felt, len(program))
		for i, v := range program {
			felts[i] = felt.FromUint64(v)
		}
		return &core.SierraClass{
			SemanticVersion: "0.1.0",
			Program:         felts,
			EntryPoints: core.SierraEntryPoints{
				External: []core.SierraEntryPoint{{Index: 0, Selector: core.Selector("foo")}},
			},
		}
	}

	a, err := newClass(1, 2, 3).Hash()
	require.NoError(t, err)
	b, err := newClass(1, 2, 3).Hash()
	require.NoError(t, err)
	c, err := newClass(1, 2, 4).Hash()
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	compiled := &core.CompiledClass{Bytecode: []felt.Felt{felt.FromUint64(9)}}
	assert.Equal(t, compiled.Hash(), compiled.Hash())
}
