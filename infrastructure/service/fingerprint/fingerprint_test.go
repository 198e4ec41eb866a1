package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	fp, err := Generate("agent-public-key")
	require.NoError(t, err)
	assert.Len(t, fp, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", fp)

	// Deterministic for the same key.
	again, err := Generate("agent-public-key")
	require.NoError(t, err)
	assert.Equal(t, fp, again)

	other, err := Generate("different-key")
	require.NoError(t, err)
	assert.NotEqual(t, fp, other)
}

func TestGenerate_KnownVector(t *testing.T) {
	fp, err := Generate("abc")
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", fp)
}

func TestGenerate_EmptyKey(t *testing.T) {
	_, err := Generate("")
	assert.ErrorIs(t, err, ErrEmptyKey)
}
