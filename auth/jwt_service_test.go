package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService("test-key", time.Hour)

	token, expires, err := svc.GenerateToken("user-1", "alice@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestTokenService_RejectsForeignKey(t *testing.T) {
	token, _, err := NewTokenService("key-a", time.Hour).GenerateToken("user-1", "a@example.com")
	require.NoError(t, err)

	_, err = NewTokenService("key-b", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenService_RejectsExpired(t *testing.T) {
	svc := NewTokenService("test-key", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := svc.GenerateToken("user-1", "a@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.EqualError(t, err, "token is expired or not active yet")
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	_, err := NewTokenService("test-key", time.Hour).ValidateToken("not.a.token")
	assert.Error(t, err)
}
