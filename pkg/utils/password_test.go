package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := VerifyPassword("Sup3rSecret", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("sup3rsecret", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordSaltsEachCall(t *testing.T) {
	h1, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	h2, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	_, err := VerifyPassword("anything", "not-a-hash")
	assert.Error(t, err)
}

func TestValidatePasswordStrength(t *testing.T) {
	assert.NoError(t, ValidatePasswordStrength("Abcdefg1"))

	assert.Error(t, ValidatePasswordStrength("Abc1"))      // too short
	assert.Error(t, ValidatePasswordStrength("abcdefg1"))  // no uppercase
	assert.Error(t, ValidatePasswordStrength("ABCDEFG1"))  // no lowercase
	assert.Error(t, ValidatePasswordStrength("Abcdefghi")) // no digit
}
