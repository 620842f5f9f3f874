package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePassword(t *testing.T) {
	for _, length := range []int{MinPasswordLength, 16, MaxPasswordLength} {
		pw, err := GeneratePassword(length)
		require.NoError(t, err)
		assert.Len(t, pw, length)

		assert.True(t, strings.ContainsAny(pw, lowercaseChars), pw)
		assert.True(t, strings.ContainsAny(pw, uppercaseChars), pw)
		assert.True(t, strings.ContainsAny(pw, numberChars), pw)
		assert.True(t, strings.ContainsAny(pw, symbolChars), pw)
	}
}

func TestGeneratePassword_Bounds(t *testing.T) {
	_, err := GeneratePassword(MinPasswordLength - 1)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = GeneratePassword(MaxPasswordLength + 1)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestGeneratePassword_HashableByBcrypt(t *testing.T) {
	pw, err := GeneratePassword(MaxPasswordLength)
	require.NoError(t, err)

	_, err = BcryptHasher{Cost: 4}.Hash(pw)
	assert.NoError(t, err)
}

func TestGeneratePassword_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for j := 0; j < 50; j++ {
		pw, err := GeneratePassword(24)
		require.NoError(t, err)
		_, dup := seen[pw]
		require.False(t, dup)
		seen[pw] = struct{}{}
	}
}

func TestRandomIdentifier(t *testing.T) {
	id, err := RandomIdentifier(12)
	require.NoError(t, err)
	assert.Len(t, id, 12)
	assert.Empty(t, strings.Trim(id, lowercaseChars+numberChars))

	_, err = RandomIdentifier(0)
	assert.ErrorIs(t, err, ErrInvalidLength)
}
