package felt

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/fxamacker/cbor/v2"
)

// Felt is an element of the Stark field. The zero value is ready to use.
type Felt struct {
	val fp.Element
}

const (
	Limbs = fp.Limbs // number of 64 bits words needed to represent a Felt
	Bits  = fp.Bits  // number of bits needed to represent a Felt
	Bytes = fp.Bytes // number of bytes needed to represent a Felt
)

var (
	Zero = Felt{}
	One  = FromUint64(1)
)

var ErrOverflow = errors.New("felt does not fit into uint64")

var bigIntPool = sync.Pool{
	New: func() any {
		return new(big.Int)
	},
}

func NewFelt(element *fp.Element) *Felt {
	return &Felt{val: *element}
}

// FromUint64 returns the felt representation of v
func FromUint64(v uint64) Felt {
	var f Felt
	f.val.SetUint64(v)
	return f
}

// FromBytes interprets b as a big-endian number reduced modulo the field order
func FromBytes(b []byte) Felt {
	var f Felt
	f.val.SetBytes(b)
	return f
}

// NewFromString parses a 0x-prefixed hex or a decimal string
func NewFromString(s string) (*Felt, error) {
	return new(Felt).SetString(s)
}

// NewUnsafeFromString is NewFromString for constants, panics on a malformed input
func NewUnsafeFromString(s string) *Felt {
	f, err := NewFromString(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Impl returns the underlying field element type
func (z *Felt) Impl() *fp.Element {
	return &z.val
}

// UnmarshalJSON accepts numbers and strings as input.
// If there is an error, we try to explicitly unmarshal from hex before
// returning an error.
func (z *Felt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) > fp.Bits*3 {
		return errors.New("value too large (max = Element.Bits * 3)")
	}

	if len(s) > 0 && s[0] == '"' {
		s = s[1:]
	}
	if len(s) > 0 && s[len(s)-1] == '"' {
		s = s[:len(s)-1]
	}

	vv := bigIntPool.Get().(*big.Int)
	defer bigIntPool.Put(vv)

	if _, ok := vv.SetString(s, 0); !ok {
		if _, ok := vv.SetString(s, 16); !ok {
			return errors.New("can't parse into a big.Int: " + s)
		}
	}

	z.val.SetBigInt(vv)
	return nil
}

func (z *Felt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + z.String() + `"`), nil
}

// MarshalCBOR encodes the felt as a 32 byte big-endian string
func (z Felt) MarshalCBOR() ([]byte, error) {
	b := z.val.Bytes()
	return cbor.Marshal(b[:])
}

func (z *Felt) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	if len(b) != Bytes {
		return fmt.Errorf("felt: expected %d bytes, got %d", Bytes, len(b))
	}
	z.val.SetBytes(b)
	return nil
}

func (z *Felt) SetBytes(e []byte) *Felt {
	z.val.SetBytes(e)
	return z
}

func (z *Felt) SetString(number string) (*Felt, error) {
	_, err := z.val.SetString(number)
	return z, err
}

func (z *Felt) SetUint64(v uint64) *Felt {
	z.val.SetUint64(v)
	return z
}

func (z *Felt) SetBigInt(v *big.Int) *Felt {
	z.val.SetBigInt(v)
	return z
}

func (z *Felt) SetRandom() (*Felt, error) {
	_, err := z.val.SetRandom()
	return z, err
}

// String returns the 0x-prefixed hex representation
func (z *Felt) String() string {
	return "0x" + z.val.Text(16)
}

// ShortString returns the value formatted with at most 8 hex digits
// on each side, for logging.
func (z *Felt) ShortString() string {
	hex := z.val.Text(16)
	if len(hex) <= 16 {
		return "0x" + hex
	}
	return "0x" + hex[:8] + "..." + hex[len(hex)-8:]
}

func (z *Felt) Text(base int) string {
	return z.val.Text(base)
}

func (z *Felt) Equal(x *Felt) bool {
	return z.val.Equal(&x.val)
}

func (z *Felt) Marshal() []byte {
	return z.val.Marshal()
}

func (z *Felt) Bytes() [32]byte {
	return z.val.Bytes()
}

func (z *Felt) BigInt(res *big.Int) *big.Int {
	return z.val.BigInt(res)
}

func (z *Felt) IsOne() bool {
	return z.val.IsOne()
}

func (z *Felt) IsZero() bool {
	return z.val.IsZero()
}

// Uint64 returns the value as uint64, failing when it does not fit
func (z *Felt) Uint64() (uint64, error) {
	if !z.val.IsUint64() {
		return 0, ErrOverflow
	}
	return z.val.Uint64(), nil
}

func (z *Felt) Add(x, y *Felt) *Felt {
	z.val.Add(&x.val, &y.val)
	return z
}

func (z *Felt) Sub(x, y *Felt) *Felt {
	z.val.Sub(&x.val, &y.val)
	return z
}

func (z *Felt) Mul(x, y *Felt) *Felt {
	z.val.Mul(&x.val, &y.val)
	return z
}

// Cmp compares the regular (non-Montgomery) representations
func (z *Felt) Cmp(x *Felt) int {
	return z.val.Cmp(&x.val)
}
