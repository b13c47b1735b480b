package forking

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/NethermindEth/cheatnet/core/felt"
)

// Kind is the type of a query sent to the remote.
type Kind uint8

const (
	KindNonce Kind = iota + 1
	KindClassHash
	KindStorage
	KindClass
	KindBlockHeader
)

func (k Kind) String() string {
	switch k {
	case KindNonce:
		return "nonce"
	case KindClassHash:
		return "class_hash"
	case KindStorage:
		return "storage"
	case KindClass:
		return "class"
	case KindBlockHeader:
		return "block_header"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

var ErrMalformedKey = errors.New("malformed cache key")

const keySeparator = 0

// Key identifies one cached query. Fork is a sanitized URL, Addr and Slot
// are zero when the query does not use them.
type Key struct {
	Fork  string
	Block string
	Kind  Kind
	Addr  felt.Felt
	Slot  felt.Felt
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", k.Fork, k.Block, k.Kind, k.Addr.String(), k.Slot.String())
}

// Prefix returns the encoded prefix shared by every key of a fork block.
// An empty block selects all blocks of the fork.
func Prefix(fork, block string) []byte {
	buf := append([]byte(fork), keySeparator)
	if block == "" {
		return buf
	}
	return append(append(buf, block...), keySeparator)
}

// Marshal encodes the key as fork 0x00 block 0x00 kind addr slot
func (k Key) Marshal() []byte {
	addr := k.Addr.Bytes()
	slot := k.Slot.Bytes()
	buf := Prefix(k.Fork, k.Block)
	buf = append(buf, byte(k.Kind))
	buf = append(buf, addr[:]...)
	return append(buf, slot[:]...)
}

func ParseKey(b []byte) (Key, error) {
	var k Key
	parts := bytes.SplitN(b, []byte{keySeparator}, 3)
	if len(parts) != 3 || len(parts[2]) != 1+2*felt.Bytes {
		return k, fmt.Errorf("%w: %x", ErrMalformedKey, b)
	}
	k.Fork = string(parts[0])
	k.Block = string(parts[1])
	k.Kind = Kind(parts[2][0])
	k.Addr.SetBytes(parts[2][1 : 1+felt.Bytes])
	k.Slot.SetBytes(parts[2][1+felt.Bytes:])
	return k, nil
}

// SanitizeURL turns a node URL into a name usable as a key component
func SanitizeURL(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		url = url[i+3:]
	}
	url = strings.TrimRight(url, "/")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, url)
}
