package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("battery staple", hash))
	assert.False(t, NeedsRehash(hash))
}

func TestPasswordHash_Limits(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	old, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("correct horse", string(old)))
	assert.True(t, NeedsRehash(string(old)))
	assert.True(t, NeedsRehash("not a hash"))
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti, err := NewTokenIssuer("s3cret", time.Hour)
	require.NoError(t, err)

	token, err := ti.GenerateJWT("user-1", "doctor")
	require.NoError(t, err)

	claims, err := ti.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "doctor", claims.Role)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	ti, err := NewTokenIssuer("s3cret", time.Hour)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		token, err := ti.GenerateJWT("user-1", "patient")
		require.NoError(t, err)

		later := *ti
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err = later.ValidateJWT(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := NewTokenIssuer("different", time.Hour)
		require.NoError(t, err)
		token, err := other.GenerateJWT("user-1", "patient")
		require.NoError(t, err)

		_, err = ti.ValidateJWT(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = ti.ValidateJWT(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ti.ValidateJWT("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
