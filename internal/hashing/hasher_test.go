package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	h, err := NewHasher("test-key")
	require.NoError(t, err)

	a := h.Fingerprint("Admin@Example.com ")
	assert.Len(t, a, 32)
	assert.Equal(t, a, h.Fingerprint("admin@example.com"))
	assert.NotEqual(t, a, h.Fingerprint("other@example.com"))
	assert.NotContains(t, a, "admin")

	other, err := NewHasher("another-key")
	require.NoError(t, err)
	assert.NotEqual(t, a, other.Fingerprint("admin@example.com"))
}

func TestNewHasher_KeyLength(t *testing.T) {
	_, err := NewHasher("")
	assert.ErrorIs(t, err, ErrInvalidKey)

	long := make([]byte, 65)
	for i := range long {
		long[i] = 'k'
	}
	_, err = NewHasher(string(long))
	assert.ErrorIs(t, err, ErrInvalidKey)
}
