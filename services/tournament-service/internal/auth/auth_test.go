package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracket-esports/bracket/common/config"
	"github.com/bracket-esports/bracket/common/models"
)

func newTestManager(t *testing.T, secret string) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(config.AuthConfig{JWTSecret: secret, TokenTTLHours: 1, Issuer: "bracket-test"})
	require.NoError(t, err)
	return m
}

func TestIssueAndParse(t *testing.T) {
	m := newTestManager(t, "s3cret")
	user := &models.User{UserId: "u-1", Username: "ace", Role: models.RoleCreator}

	token, expiresAt, err := m.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserId)
	assert.Equal(t, "ace", claims.Username)
	assert.Equal(t, models.RoleCreator, claims.Role)
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	m := newTestManager(t, "s3cret")
	other := newTestManager(t, "different")
	user := &models.User{UserId: "u-1", Username: "ace", Role: models.RolePlayer}

	foreign, _, err := other.Issue(user)
	require.NoError(t, err)
	_, err = m.Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, _, err := m.Issue(user)
	require.NoError(t, err)
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenManagerNeedsSecret(t *testing.T) {
	_, err := NewTokenManager(config.AuthConfig{})
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}
