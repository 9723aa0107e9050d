package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeVector(t *testing.T) {
	vec := []float32{0.1, -2.5, 3.75, 0}

	blob := EncodeVector(vec)
	require.Len(t, blob, len(vec)*4)

	decoded, err := DecodeVector(blob)
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)
}

func TestEncodeVector_Empty(t *testing.T) {
	assert.Nil(t, EncodeVector(nil))
	assert.Nil(t, EncodeVector([]float32{}))
}

func TestDecodeVector_Empty(t *testing.T) {
	vec, err := DecodeVector(nil)
	require.NoError(t, err)
	assert.Nil(t, vec)
}

func TestDecodeVector_InvalidLength(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
