package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-account-service/internal/model"
)

func testIssuer() *TokenIssuer {
	return NewTokenIssuer(TokenConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    7 * 24 * time.Hour,
	})
}

func testUser() model.User {
	return model.User{
		ID:       "user-1",
		Username: "abc",
		Fullname: "A B Cee",
		Email:    "a@b.com",
	}
}

func TestTokenIssuer_AccessRoundTrip(t *testing.T) {
	issuer := testIssuer()

	token, err := issuer.IssueAccessToken(testUser())
	require.NoError(t, err)

	claims, err := issuer.VerifyAccess(token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "abc", claims.Username)
	assert.Equal(t, "A B Cee", claims.Fullname)
	assert.Equal(t, "access", claims.Type)
	assert.NotEmpty(t, claims.TokenID)
}

func TestTokenIssuer_RefreshCarriesOnlyID(t *testing.T) {
	issuer := testIssuer()

	token, err := issuer.IssueRefreshToken(testUser())
	require.NoError(t, err)

	claims, err := issuer.VerifyRefresh(token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "refresh", claims.Type)
	assert.Empty(t, claims.Email)
	assert.Empty(t, claims.Username)
	assert.Empty(t, claims.Fullname)
}

func TestTokenIssuer_ExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer(TokenConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     -time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    -time.Minute,
	})

	token, err := issuer.IssueAccessToken(testUser())
	require.NoError(t, err)

	_, err = issuer.VerifyAccess(token)
	assert.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestTokenIssuer_SeparateSecrets(t *testing.T) {
	issuer := testIssuer()

	t.Run("access token rejected as refresh token", func(t *testing.T) {
		token, err := issuer.IssueAccessToken(testUser())
		require.NoError(t, err)

		_, err = issuer.VerifyRefresh(token)
		assert.ErrorIs(t, err, model.ErrTokenInvalid)
	})

	t.Run("refresh token rejected as access token", func(t *testing.T) {
		token, err := issuer.IssueRefreshToken(testUser())
		require.NoError(t, err)

		_, err = issuer.VerifyAccess(token)
		assert.ErrorIs(t, err, model.ErrTokenInvalid)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other := NewTokenIssuer(TokenConfig{
			AccessSecret:  "different-secret",
			AccessTTL:     15 * time.Minute,
			RefreshSecret: "another-secret",
			RefreshTTL:    time.Hour,
		})

		token, err := other.IssueAccessToken(testUser())
		require.NoError(t, err)

		_, err = issuer.VerifyAccess(token)
		assert.ErrorIs(t, err, model.ErrTokenInvalid)
	})
}

func TestTokenIssuer_MalformedToken(t *testing.T) {
	issuer := testIssuer()

	_, err := issuer.VerifyAccess("not.a.jwt")
	assert.ErrorIs(t, err, model.ErrTokenInvalid)

	_, err = issuer.VerifyAccess("")
	assert.ErrorIs(t, err, model.ErrTokenInvalid)
}
