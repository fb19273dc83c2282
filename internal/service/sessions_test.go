package service_test

import (
	"context"
	"testing"
	"time"

	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/internal/service"
	"bitwise74/recipe-api/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotate(t *testing.T) {
	e := newEnv(t)
	p := e.verified(t, access.RoleUser, "alice")

	pair, err := e.d.Sessions.Issue(p.Account.ID)
	require.NoError(t, err)

	next, err := e.d.Sessions.Rotate(context.Background(), pair.Refresh)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Refresh, next.Refresh)

	_, err = e.d.Sessions.Rotate(context.Background(), pair.Refresh)
	requireKind(t, err, apperr.Unauthenticated, "Token is blacklisted")

	// the rotated token keeps working exactly once
	_, err = e.d.Sessions.Rotate(context.Background(), next.Refresh)
	require.NoError(t, err)

	var n int64
	require.NoError(t, e.d.DB.Model(&model.BlacklistedToken{}).Count(&n).Error)
	assert.Equal(t, int64(2), n)
}

func TestRotateRejects(t *testing.T) {
	e := newEnv(t)
	p := e.verified(t, access.RoleUser, "alice")

	pair, err := e.d.Sessions.Issue(p.Account.ID)
	require.NoError(t, err)

	t.Run("access token", func(t *testing.T) {
		_, err := e.d.Sessions.Rotate(context.Background(), pair.Access)
		requireKind(t, err, apperr.Unauthenticated, "")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := e.d.Sessions.Rotate(context.Background(), "not.a.token")
		requireKind(t, err, apperr.Unauthenticated, "")
	})

	t.Run("inactive account", func(t *testing.T) {
		require.NoError(t, e.d.DB.Model(&model.Account{}).Where("id = ?", p.Account.ID).Update("is_active", false).Error)

		_, err := e.d.Sessions.Rotate(context.Background(), pair.Refresh)
		requireKind(t, err, apperr.Unauthenticated, "")

		var n int64
		require.NoError(t, e.d.DB.Model(&model.BlacklistedToken{}).Count(&n).Error)
		assert.Zero(t, n)
	})
}

func TestRevoke(t *testing.T) {
	e := newEnv(t)
	alice := e.verified(t, access.RoleUser, "alice")
	bob := e.verified(t, access.RoleUser, "bob")

	pair, err := e.d.Sessions.Issue(alice.Account.ID)
	require.NoError(t, err)

	err = e.d.Sessions.Revoke(context.Background(), pair.Refresh, bob.Account.ID)
	requireKind(t, err, apperr.Unauthenticated, "")

	require.NoError(t, e.d.Sessions.Revoke(context.Background(), pair.Refresh, alice.Account.ID))

	_, err = e.d.Sessions.Rotate(context.Background(), pair.Refresh)
	requireKind(t, err, apperr.Unauthenticated, "Token is blacklisted")
}

func TestPurgeExpiredTokens(t *testing.T) {
	e := newEnv(t)
	now := time.Now()

	require.NoError(t, e.d.DB.Create(&[]model.BlacklistedToken{
		{JTI: "old", AccountID: 1, ExpiresAt: now.Add(-time.Hour)},
		{JTI: "fresh", AccountID: 1, ExpiresAt: now.Add(time.Hour)},
	}).Error)

	n, err := service.PurgeExpiredTokens(context.Background(), e.d.DB, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var left []model.BlacklistedToken
	require.NoError(t, e.d.DB.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "fresh", left[0].JTI)
}
