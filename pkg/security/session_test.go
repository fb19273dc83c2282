package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionPair(t *testing.T) {
	s := NewSessionSigner("secret", 5*time.Minute, 90*24*time.Hour)

	pair, err := s.IssuePair(9)
	require.NoError(t, err)

	access, err := s.Parse(pair.Access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(9), access.UserID)
	assert.NotEmpty(t, access.ID)

	refresh, err := s.Parse(pair.Refresh, RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, access.ID, refresh.ID)
	assert.True(t, refresh.ExpiresAt.After(access.ExpiresAt.Time))
}

func TestSessionParseErrors(t *testing.T) {
	s := NewSessionSigner("secret", 5*time.Minute, time.Hour)
	pair, err := s.IssuePair(1)
	require.NoError(t, err)

	t.Run("wrong type", func(t *testing.T) {
		_, err := s.Parse(pair.Access, RefreshToken)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewSessionSigner("other", 5*time.Minute, time.Hour)
		_, err := other.Parse(pair.Access, AccessToken)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Parse("not.a.jwt", AccessToken)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, err := s.IssuePair(1)
		require.NoError(t, err)
		s.now = time.Now

		_, err = s.Parse(old.Refresh, RefreshToken)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("none algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{UserID: 1, Type: AccessToken})
		raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = s.Parse(raw, AccessToken)
		assert.Error(t, err)
	})
}
