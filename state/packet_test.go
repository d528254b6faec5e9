package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorRoundTrip(t *testing.T) {
	vector := map[NodeId]Metric{
		"a": 0,
		"b": 3,
		"c": Infinity,
	}
	decoded, err := DecodeVector(EncodeVector(vector))
	assert.NoError(t, err)
	assert.Equal(t, vector, decoded)
}

func TestDecodeVectorMalformed(t *testing.T) {
	_, err := DecodeVector([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeVector([]byte(`["a", "b"]`))
	assert.Error(t, err)

	_, err = DecodeVector([]byte(`{"a": "one"}`))
	assert.Error(t, err)

	_, err = DecodeVector([]byte(`{"a": -1}`))
	assert.Error(t, err)
}

func TestDecodeVectorClampsToInfinity(t *testing.T) {
	decoded, err := DecodeVector([]byte(`{"a": 9000}`))
	assert.NoError(t, err)
	assert.Equal(t, Infinity, decoded["a"])
}

func TestDecodeVectorEmpty(t *testing.T) {
	decoded, err := DecodeVector([]byte(`{}`))
	assert.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestIsData(t *testing.T) {
	assert.True(t, (&Packet{Kind: PacketData}).IsData())
	assert.False(t, (&Packet{Kind: PacketRouting}).IsData())
}
