package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyPassword_RoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	stored := HashPassword("secret1", salt)

	assert.True(t, VerifyPassword("secret1", salt, stored))
	assert.False(t, VerifyPassword("secret2", salt, stored))
	assert.False(t, VerifyPassword("", salt, stored))
}

func TestHashPassword_NeverPlaintext(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	stored := HashPassword("hunter22", salt)
	assert.NotEqual(t, "hunter22", stored)
	assert.NotEmpty(t, stored)
}

func TestHashPassword_IndependentSaltsDiffer(t *testing.T) {
	saltA, err := GenerateSalt()
	require.NoError(t, err)
	saltB, err := GenerateSalt()
	require.NoError(t, err)

	require.NotEqual(t, saltA, saltB, "two generated salts collided")
	assert.NotEqual(t, HashPassword("same password", saltA), HashPassword("same password", saltB))
}

func TestHashPassword_Deterministic(t *testing.T) {
	// Same password and salt must always derive the same verifier,
	// otherwise login after restart would be impossible.
	assert.Equal(t, HashPassword("pw", "abcd"), HashPassword("pw", "abcd"))
}

func TestVerifyPassword_EmptyStoredHash(t *testing.T) {
	assert.False(t, VerifyPassword("anything", "salt", ""))
}

func TestGenerateSalt_Length(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	// 16 random bytes, hex encoded.
	assert.Len(t, salt, 32)
}
