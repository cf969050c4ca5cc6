package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToken(t *testing.T) {
	token, err := GenerateSessionToken("abc", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateSessionToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.SessionID)

	_, err = ValidateSessionToken(token, "other")
	assert.Error(t, err)

	expired, err := GenerateSessionToken("abc", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateSessionToken(expired, "secret")
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("password")
	require.NoError(t, err)
	assert.True(t, IsPasswordHash(hash))
	assert.False(t, IsPasswordHash("password"))
	assert.True(t, CheckPassword(hash, "password"))
	assert.False(t, CheckPassword(hash, "Password"))
}
