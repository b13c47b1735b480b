package vm

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/cheatnet/core/felt"
)

var (
	ErrUnknownSegment       = errors.New("unknown memory segment")
	ErrUnknownMemoryCell    = errors.New("memory cell is not initialised")
	ErrInconsistentMemory   = errors.New("inconsistent memory assignment")
	ErrExpectedFelt         = errors.New("expected a felt, found a pointer")
	ErrExpectedRelocatable  = errors.New("expected a pointer, found a felt")
	ErrDifferentSegments    = errors.New("pointers belong to different segments")
	ErrNegativeRelocatable  = errors.New("pointer offset would be negative")
	ErrOffsetDoesNotFitUint = errors.New("offset does not fit into uint64")
)

// Relocatable is an address in segmented memory.
type Relocatable struct {
	Segment uint64
	Offset  uint64
}

func (r Relocatable) String() string {
	return fmt.Sprintf("%d:%d", r.Segment, r.Offset)
}

func (r Relocatable) AddUint(n uint64) Relocatable {
	return Relocatable{Segment: r.Segment, Offset: r.Offset + n}
}

func (r Relocatable) AddFelt(f *felt.Felt) (Relocatable, error) {
	n, err := f.Uint64()
	if err != nil {
		return Relocatable{}, ErrOffsetDoesNotFitUint
	}
	return r.AddUint(n), nil
}

func (r Relocatable) SubUint(n uint64) (Relocatable, error) {
	if n > r.Offset {
		return Relocatable{}, ErrNegativeRelocatable
	}
	return Relocatable{Segment: r.Segment, Offset: r.Offset - n}, nil
}

// Distance returns r - other for two pointers into the same segment
func (r Relocatable) Distance(other Relocatable) (uint64, error) {
	if r.Segment != other.Segment {
		return 0, ErrDifferentSegments
	}
	if other.Offset > r.Offset {
		return 0, ErrNegativeRelocatable
	}
	return r.Offset - other.Offset, nil
}

// MaybeRelocatable is a memory value: either a felt or a pointer.
type MaybeRelocatable struct {
	felt  felt.Felt
	ptr   Relocatable
	isPtr bool
}

func FeltValue(f felt.Felt) MaybeRelocatable {
	return MaybeRelocatable{felt: f}
}

func Uint64Value(v uint64) MaybeRelocatable {
	return MaybeRelocatable{felt: felt.FromUint64(v)}
}

func PtrValue(r Relocatable) MaybeRelocatable {
	return MaybeRelocatable{ptr: r, isPtr: true}
}

func (m MaybeRelocatable) IsPtr() bool {
	return m.isPtr
}

func (m MaybeRelocatable) Felt() (felt.Felt, error) {
	if m.isPtr {
		return felt.Zero, ErrExpectedFelt
	}
	return m.felt, nil
}

func (m MaybeRelocatable) Ptr() (Relocatable, error) {
	if !m.isPtr {
		return Relocatable{}, ErrExpectedRelocatable
	}
	return m.ptr, nil
}

func (m MaybeRelocatable) Equal(other MaybeRelocatable) bool {
	if m.isPtr != other.isPtr {
		return false
	}
	if m.isPtr {
		return m.ptr == other.ptr
	}
	return m.felt.Equal(&other.felt)
}

func (m MaybeRelocatable) String() string {
	if m.isPtr {
		return m.ptr.String()
	}
	return m.felt.String()
}

type cell struct {
	value MaybeRelocatable
	set   bool
}

// Memory is write-once segmented memory. Segments grow on demand.
type Memory struct {
	segments [][]cell
}

func NewMemory() *Memory {
	return &Memory{}
}

// AddSegment allocates a new empty segment and returns its base
func (m *Memory) AddSegment() Relocatable {
	m.segments = append(m.segments, nil)
	return Relocatable{Segment: uint64(len(m.segments) - 1)}
}

func (m *Memory) NumSegments() int {
	return len(m.segments)
}

// SegmentSize returns one past the highest written offset of a segment
func (m *Memory) SegmentSize(segment uint64) (uint64, error) {
	if segment >= uint64(len(m.segments)) {
		return 0, ErrUnknownSegment
	}
	return uint64(len(m.segments[segment])), nil
}

// Set writes v at addr. Rewriting a cell with a different value fails.
func (m *Memory) Set(addr Relocatable, v MaybeRelocatable) error {
	if addr.Segment >= uint64(len(m.segments)) {
		return fmt.Errorf("%w: %s", ErrUnknownSegment, addr)
	}
	seg := m.segments[addr.Segment]
	if addr.Offset >= uint64(len(seg)) {
		grown := make([]cell, addr.Offset+1)
		copy(grown, seg)
		seg = grown
		m.segments[addr.Segment] = seg
	}
	if c := seg[addr.Offset]; c.set && !c.value.Equal(v) {
		return fmt.Errorf("%w at %s: %s != %s", ErrInconsistentMemory, addr, c.value, v)
	}
	seg[addr.Offset] = cell{value: v, set: true}
	return nil
}

func (m *Memory) Get(addr Relocatable) (MaybeRelocatable, error) {
	if addr.Segment >= uint64(len(m.segments)) {
		return MaybeRelocatable{}, fmt.Errorf("%w: %s", ErrUnknownSegment, addr)
	}
	seg := m.segments[addr.Segment]
	if addr.Offset >= uint64(len(seg)) || !seg[addr.Offset].set {
		return MaybeRelocatable{}, fmt.Errorf("%w: %s", ErrUnknownMemoryCell, addr)
	}
	return seg[addr.Offset].value, nil
}

func (m *Memory) GetFelt(addr Relocatable) (felt.Felt, error) {
	v, err := m.Get(addr)
	if err != nil {
		return felt.Zero, err
	}
	return v.Felt()
}

func (m *Memory) GetPtr(addr Relocatable) (Relocatable, error) {
	v, err := m.Get(addr)
	if err != nil {
		return Relocatable{}, err
	}
	return v.Ptr()
}

// GetRange reads n consecutive cells starting at addr
func (m *Memory) GetRange(addr Relocatable, n uint64) ([]MaybeRelocatable, error) {
	out := make([]MaybeRelocatable, 0, n)
	for i := range n {
		v, err := m.Get(addr.AddUint(i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// GetFeltSpan reads the felts in [start, end)
func (m *Memory) GetFeltSpan(start, end Relocatable) ([]felt.Felt, error) {
	n, err := end.Distance(start)
	if err != nil {
		return nil, err
	}
	out := make([]felt.Felt, 0, n)
	for i := range n {
		f, err := m.GetFelt(start.AddUint(i))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Write stores values consecutively from addr and returns the address past the last one
func (m *Memory) Write(addr Relocatable, values ...MaybeRelocatable) (Relocatable, error) {
	for i, v := range values {
		if err := m.Set(addr.AddUint(uint64(i)), v); err != nil {
			return Relocatable{}, err
		}
	}
	return addr.AddUint(uint64(len(values))), nil
}

func (m *Memory) WriteFelts(addr Relocatable, values []felt.Felt) (Relocatable, error) {
	for i := range values {
		if err := m.Set(addr.AddUint(uint64(i)), FeltValue(values[i])); err != nil {
			return Relocatable{}, err
		}
	}
	return addr.AddUint(uint64(len(values))), nil
}

// AllocFelts copies values into a fresh segment and returns its (start, end)
func (m *Memory) AllocFelts(values []felt.Felt) (Relocatable, Relocatable, error) {
	start := m.AddSegment()
	end, err := m.WriteFelts(start, values)
	return start, end, err
}
