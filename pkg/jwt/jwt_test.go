package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator() *Generator {
	return NewGenerator(Config{
		Secret:   "test-secret-key-for-signing-tokens",
		Issuer:   "teams-test",
		TokenTTL: time.Hour,
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	g := newTestGenerator()

	token, expiresAt, err := g.GenerateToken(
		"user-123",
		"dev@example.com",
		"Dev User",
		[]string{"security", "platform"},
		[]string{"eng/backend"},
	)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := g.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "dev@example.com", claims.Email)
	assert.Equal(t, "Dev User", claims.Name)
	assert.Equal(t, []string{"security", "platform"}, claims.ExternalRoles)
	assert.Equal(t, []string{"eng/backend"}, claims.ExternalGroups)
	assert.False(t, claims.BypassAccessCheck)
	assert.Equal(t, "teams-test", claims.Issuer)
	assert.Equal(t, "user-123", claims.Subject)
}

func TestGenerateToken_EmptyUserID(t *testing.T) {
	g := newTestGenerator()

	_, _, err := g.GenerateToken("", "dev@example.com", "", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyUserID)
}

func TestGenerateServiceToken(t *testing.T) {
	g := newTestGenerator()

	token, _, err := g.GenerateServiceToken("scanner-1", "CI Scanner", 15*time.Minute)
	require.NoError(t, err)

	claims, err := g.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "scanner-1", claims.UserID)
	assert.True(t, claims.BypassAccessCheck)
	assert.Empty(t, claims.ExternalRoles)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	g := newTestGenerator()
	other := NewGenerator(Config{Secret: "a-completely-different-secret", Issuer: "teams-test", TokenTTL: time.Hour})

	token, _, err := g.GenerateToken("user-123", "dev@example.com", "", nil, nil)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	g := NewGenerator(Config{
		Secret:   "test-secret-key-for-signing-tokens",
		Issuer:   "teams-test",
		TokenTTL: -time.Minute,
	})

	token, _, err := g.GenerateToken("user-123", "dev@example.com", "", nil, nil)
	require.NoError(t, err)

	_, err = g.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	g := newTestGenerator()

	_, err := g.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaims_ExternalAttributes(t *testing.T) {
	c := &Claims{
		ExternalRoles:  []string{"security", "platform"},
		ExternalGroups: []string{"eng/backend"},
	}

	assert.True(t, c.HasExternalRole("security"))
	assert.False(t, c.HasExternalRole("finance"))
	assert.True(t, c.HasExternalGroup("eng/backend"))
	assert.False(t, c.HasExternalGroup("eng/frontend"))
}
