package vm_test

import (
	"testing"

	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryWriteOnce(t *testing.T) {
	mem := vm.NewMemory()
	base := mem.AddSegment()

	require.NoError(t, mem.Set(base, vm.Uint64Value(1)))
	// same value is fine
	require.NoError(t, mem.Set(base, vm.Uint64Value(1)))
	require.ErrorIs(t, mem.Set(base, vm.Uint64Value(2)), vm.ErrInconsistentMemory)

	_, err := mem.Get(base.AddUint(5))
	require.ErrorIs(t, err, vm.ErrUnknownMemoryCell)
	_, err = mem.Get(vm.Relocatable{Segment: 9})
	require.ErrorIs(t, err, vm.ErrUnknownSegment)
}

func TestMemorySpans(t *testing.T) {
	mem := vm.NewMemory()
	values := []felt.Felt{felt.FromUint64(3), felt.FromUint64(4), felt.FromUint64(5)}

	start, end, err := mem.AllocFelts(values)
	require.NoError(t, err)

	n, err := end.Distance(start)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	got, err := mem.GetFeltSpan(start, end)
	require.NoError(t, err)
	assert.Equal(t, values, got)

	other := mem.AddSegment()
	_, err = other.Distance(start)
	require.ErrorIs(t, err, vm.ErrDifferentSegments)

	size, err := mem.SegmentSize(start.Segment)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), size)
}

func TestMaybeRelocatable(t *testing.T) {
	f := vm.Uint64Value(7)
	_, err := f.Ptr()
	require.ErrorIs(t, err, vm.ErrExpectedRelocatable)

	p := vm.PtrValue(vm.Relocatable{Segment: 1, Offset: 2})
	_, err = p.Felt()
	require.ErrorIs(t, err, vm.ErrExpectedFelt)

	assert.False(t, f.Equal(p))
	assert.True(t, p.Equal(vm.PtrValue(vm.Relocatable{Segment: 1, Offset: 2})))
	assert.Equal(t, "1:2", p.String())
}
