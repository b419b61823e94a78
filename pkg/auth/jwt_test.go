package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager() *TokenManager {
	return NewTokenManager("session-secret", "service-key", 15*time.Minute, 5*time.Minute)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	tm := newManager()

	token, err := tm.GenerateSessionToken("user-1", "jo@example.com", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "jo@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, TokenTypeSession, claims.Type)
	assert.Equal(t, "homedesk", claims.Issuer)
}

func TestAutomationTokenRoundTrip(t *testing.T) {
	tm := newManager()

	token, err := tm.GenerateAutomationToken("scheduler")
	require.NoError(t, err)

	claims, err := tm.ValidateAutomationToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAutomation, claims.Type)
	assert.Equal(t, "scheduler", claims.Subject)
	assert.Empty(t, claims.UserID)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	tm := newManager()

	session, err := tm.GenerateSessionToken("user-1", "jo@example.com", "member")
	require.NoError(t, err)
	automation, err := tm.GenerateAutomationToken("scheduler")
	require.NoError(t, err)

	// Different signing keys, so each validator rejects the other's token.
	_, err = tm.ValidateAutomationToken(session)
	assert.Error(t, err)
	_, err = tm.ValidateSessionToken(automation)
	assert.Error(t, err)
}

func TestValidateBearerAcceptsBothTypes(t *testing.T) {
	tm := newManager()

	session, err := tm.GenerateSessionToken("user-1", "jo@example.com", "member")
	require.NoError(t, err)
	automation, err := tm.GenerateAutomationToken("scheduler")
	require.NoError(t, err)

	claims, err := tm.ValidateBearer(session)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeSession, claims.Type)

	claims, err = tm.ValidateBearer(automation)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAutomation, claims.Type)

	_, err = tm.ValidateBearer("not.a.jwt")
	assert.Error(t, err)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	tm := newManager()
	other := NewTokenManager("different-session-secret", "different-service-key", 15*time.Minute, 5*time.Minute)

	token, err := tm.GenerateSessionToken("user-1", "jo@example.com", "member")
	require.NoError(t, err)

	_, err = other.ValidateSessionToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager("session-secret", "service-key", -time.Minute, -time.Minute)

	token, err := tm.GenerateSessionToken("user-1", "jo@example.com", "member")
	require.NoError(t, err)

	_, err = tm.ValidateSessionToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid bearer", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"missing header", "", "", true},
		{"wrong scheme", "Basic abc", "", true},
		{"lowercase scheme", "bearer abc.def.ghi", "", true},
		{"bare token", "abc.def.ghi", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractTokenFromHeader(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
