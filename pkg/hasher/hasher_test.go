package hasher

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword([]byte("pw123456"))
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", hash)

	assert.True(t, PasswordCorrect("pw123456", hash))
	assert.False(t, PasswordCorrect("wrong", hash))
	assert.False(t, PasswordCorrect("pw123456", "not-a-hash"))
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(32)
	require.NoError(t, err)
	b, err := GenerateToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	raw, err := base64.URLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(make([]byte, 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestCompareDummy(t *testing.T) {
	assert.NotPanics(t, func() { CompareDummy("anything") })
	assert.NotEmpty(t, dummyHash())
}
