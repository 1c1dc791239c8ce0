package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, salt, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.Len(t, salt, 32) // 16 random bytes, hex encoded
	assert.Len(t, hash, 128)

	assert.True(t, VerifyPassword("hunter2", hash, salt))
	assert.False(t, VerifyPassword("hunter3", hash, salt))
	assert.False(t, VerifyPassword("hunter2", hash, "00112233445566778899aabbccddeeff"))
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	h1, s1, err := HashPassword("same-password")
	require.NoError(t, err)
	h2, s2, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, h1, h2)
}
