// Package encoder is the CBOR codec used for persisted cache entries.
package encoder

import (
	"reflect"
	"sync"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	initialiseEncoder sync.Once
)

func initEncAndDecModes() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}

	decMode, err = cbor.DecOptions{
		MaxArrayElements: 10485760,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal returns the canonical encoding of v
func Marshal(v any) ([]byte, error) {
	initialiseEncoder.Do(initEncAndDecModes)
	return encMode.Marshal(v)
}

// Unmarshal decodes b into v
func Unmarshal(b []byte, v any) error {
	initialiseEncoder.Do(initEncAndDecModes)
	return decMode.Unmarshal(b, v)
}

// TestSymmetry checks that value survives an encode/decode round trip
func TestSymmetry(t *testing.T, value any) {
	t.Helper()
	b, err := Marshal(value)
	require.NoError(t, err)

	decoded := reflect.New(reflect.TypeOf(value))
	require.NoError(t, Unmarshal(b, decoded.Interface()))
	assert.Equal(t, value, decoded.Elem().Interface())
}
