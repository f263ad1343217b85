package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftremit/pkg/amount"
)

type sample struct {
	Name   string        `cbor:"1,keyasint"`
	Value  amount.Amount `cbor:"2,keyasint"`
	At     time.Time     `cbor:"3,keyasint"`
	Expiry *time.Time    `cbor:"4,keyasint,omitempty"`
}

func TestCodec(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)
	in := sample{Name: "r", Value: amount.MustParse("-170141183460469231731687303715884105728"), At: at}

	data, err := Encode(in)
	require.NoError(t, err)

	again, err := Encode(in)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding is deterministic")

	var out sample
	require.NoError(t, Decode(data, &out))
	assert.Equal(t, in.Value, out.Value)
	assert.True(t, at.Equal(out.At), "sub-second precision survives")
	assert.Nil(t, out.Expiry)

	assert.Error(t, Decode([]byte{0xff}, &out))
}
