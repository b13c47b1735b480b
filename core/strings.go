package core

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/cheatnet/core/felt"
)

// MaxShortStringLen is the number of bytes a single felt can hold as a short string.
const MaxShortStringLen = 31

// ByteArrayMagic prefixes panic data that holds a serialised byte array
var ByteArrayMagic = felt.NewUnsafeFromString("0x46a6158a16a947e5916b2a2ca68501a45e93d7110e81aa2d6438b1c57c879a3")

var (
	ErrShortStringTooLong = errors.New("short string longer than 31 bytes")
	ErrMalformedByteArray = errors.New("malformed byte array")
)

// EncodeShortString packs an ASCII string of at most 31 bytes into a felt
func EncodeShortString(s string) (felt.Felt, error) {
	if len(s) > MaxShortStringLen {
		return felt.Zero, ErrShortStringTooLong
	}
	return felt.FromBytes([]byte(s)), nil
}

// MustEncodeShortString is EncodeShortString for constants
func MustEncodeShortString(s string) felt.Felt {
	f, err := EncodeShortString(s)
	if err != nil {
		panic(err)
	}
	return f
}

// DecodeShortString returns the printable ASCII text packed into f.
// ok is false when f contains non-printable bytes or is zero.
func DecodeShortString(f *felt.Felt) (string, bool) {
	if f.IsZero() {
		return "", false
	}
	b := f.Bytes()
	start := 0
	for start < len(b) && b[start] == 0 {
		start++
	}
	if len(b)-start > MaxShortStringLen {
		return "", false
	}
	for _, c := range b[start:] {
		if c < 0x20 || c > 0x7e {
			return "", false
		}
	}
	return string(b[start:]), true
}

// EncodeByteArray serialises s as
// [full word count, 31-byte words..., pending word, pending word length].
func EncodeByteArray(s string) []felt.Felt {
	data := []byte(s)
	fullWords := len(data) / MaxShortStringLen
	out := make([]felt.Felt, 0, fullWords+3)
	out = append(out, felt.FromUint64(uint64(fullWords)))
	for i := range fullWords {
		out = append(out, felt.FromBytes(data[i*MaxShortStringLen:(i+1)*MaxShortStringLen]))
	}
	pending := data[fullWords*MaxShortStringLen:]
	out = append(out, felt.FromBytes(pending), felt.FromUint64(uint64(len(pending))))
	return out
}

// DecodeByteArray reads one serialised byte array from the head of data and
// returns the decoded string and the number of felts consumed.
func DecodeByteArray(data []felt.Felt) (string, int, error) {
	if len(data) == 0 {
		return "", 0, ErrMalformedByteArray
	}
	fullWords, err := data[0].Uint64()
	if err != nil || fullWords > uint64(len(data)) {
		return "", 0, ErrMalformedByteArray
	}
	consumed := int(fullWords) + 3
	if len(data) < consumed {
		return "", 0, ErrMalformedByteArray
	}

	out := make([]byte, 0, int(fullWords)*MaxShortStringLen)
	for i := 1; i <= int(fullWords); i++ {
		word := data[i].Bytes()
		out = append(out, word[len(word)-MaxShortStringLen:]...)
	}

	pendingLen, err := data[consumed-1].Uint64()
	if err != nil || pendingLen >= MaxShortStringLen {
		return "", 0, fmt.Errorf("%w: pending word length", ErrMalformedByteArray)
	}
	pending := data[consumed-2].Bytes()
	out = append(out, pending[len(pending)-int(pendingLen):]...)
	return string(out), consumed, nil
}

// ByteArrayPanicData encodes msg the way contracts panic with a string
func ByteArrayPanicData(msg string) []felt.Felt {
	return append([]felt.Felt{*ByteArrayMagic}, EncodeByteArray(msg)...)
}

// PanicReason encodes msg as a single short string, falling back to a byte
// array when msg does not fit in one felt.
func PanicReason(msg string) []felt.Felt {
	if f, err := EncodeShortString(msg); err == nil {
		return []felt.Felt{f}
	}
	return ByteArrayPanicData(msg)
}
