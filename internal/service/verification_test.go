package service_test

import (
	"context"
	"testing"
	"time"

	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/pkg/apperr"
	"bitwise74/recipe-api/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	e := newEnv(t)
	a := e.register(t, access.RoleUser, "alice")

	idToken, verifyToken := tokensFromURL(t, e.mails.Sent()[0].URL)

	require.NoError(t, e.d.Verifier.Confirm(context.Background(), idToken, verifyToken))
	assert.True(t, e.principal(t, a.ID).Verified())

	// a second click on the same link still succeeds
	require.NoError(t, e.d.Verifier.Confirm(context.Background(), idToken, verifyToken))
	assert.True(t, e.principal(t, a.ID).Verified())
}

func TestConfirmNutritionist(t *testing.T) {
	e := newEnv(t)
	p := e.verified(t, access.RoleNutritionist, "nina")

	assert.True(t, p.Verified())
	assert.True(t, p.Nutritionist.IsVerified)
}

func TestConfirmErrors(t *testing.T) {
	e := newEnv(t)
	a := e.register(t, access.RoleUser, "alice")
	idToken, verifyToken := tokensFromURL(t, e.mails.Sent()[0].URL)

	t.Run("garbage id", func(t *testing.T) {
		err := e.d.Verifier.Confirm(context.Background(), "!!!", verifyToken)
		requireKind(t, err, apperr.NotFound, "User not found. Register again.")
	})

	t.Run("unknown account", func(t *testing.T) {
		err := e.d.Verifier.Confirm(context.Background(), security.EncodeID(a.ID+100), verifyToken)
		requireKind(t, err, apperr.NotFound, "User not found. Register again.")
	})

	t.Run("tampered token", func(t *testing.T) {
		err := e.d.Verifier.Confirm(context.Background(), idToken, verifyToken+"0")
		requireKind(t, err, apperr.Unauthenticated, "User could not be verified. Register again.")
	})

	t.Run("token of another account", func(t *testing.T) {
		e.register(t, access.RoleUser, "bob")
		_, bobToken := tokensFromURL(t, e.mails.Sent()[1].URL)

		err := e.d.Verifier.Confirm(context.Background(), idToken, bobToken)
		requireKind(t, err, apperr.Unauthenticated, "")
	})

	t.Run("deactivated account", func(t *testing.T) {
		require.NoError(t, e.d.DB.Model(&model.Account{}).Where("id = ?", a.ID).Update("is_active", false).Error)
		t.Cleanup(func() {
			e.d.DB.Model(&model.Account{}).Where("id = ?", a.ID).Update("is_active", true)
		})

		err := e.d.Verifier.Confirm(context.Background(), idToken, verifyToken)
		requireKind(t, err, apperr.Unauthenticated, "")
	})

	assert.False(t, e.principal(t, a.ID).Verified())
}

func TestConfirmWithoutProfile(t *testing.T) {
	e := newEnv(t)

	a := &model.Account{Username: "bare", Email: "bare@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, e.d.DB.Create(a).Error)

	idToken, verifyToken := security.NewVerificationTokens(e.d.Cfg.JWT.Secret, e.d.Cfg.Verification.TTL).Issue(a.ID, true)

	err := e.d.Verifier.Confirm(context.Background(), idToken, verifyToken)
	requireKind(t, err, apperr.NotFound, "No profile associated with given user. Please register again")
}

func TestResend(t *testing.T) {
	e := newEnv(t)
	e.register(t, access.RoleUser, "alice")
	require.Len(t, e.mails.Sent(), 1)

	require.NoError(t, e.d.Verifier.Resend(context.Background(), "alice@example.com"))
	require.Len(t, e.mails.Sent(), 2)

	var req model.ResendRequest
	require.NoError(t, e.d.DB.First(&req).Error)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), req.Cooldown, time.Minute)

	// still cooling down
	require.NoError(t, e.d.Verifier.Resend(context.Background(), "alice@example.com"))
	assert.Len(t, e.mails.Sent(), 2)

	require.NoError(t, e.d.DB.Model(&model.ResendRequest{}).Where("id = ?", req.ID).Update("cooldown", time.Now().Add(-time.Second)).Error)
	require.NoError(t, e.d.Verifier.Resend(context.Background(), "alice@example.com"))
	assert.Len(t, e.mails.Sent(), 3)

	var n int64
	require.NoError(t, e.d.DB.Model(&model.ResendRequest{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestResendQuietCases(t *testing.T) {
	e := newEnv(t)
	e.verified(t, access.RoleUser, "alice")
	before := len(e.mails.Sent())

	require.NoError(t, e.d.Verifier.Resend(context.Background(), "nobody@example.com"))
	require.NoError(t, e.d.Verifier.Resend(context.Background(), "alice@example.com"))
	assert.Len(t, e.mails.Sent(), before)

	err := e.d.Verifier.Resend(context.Background(), "not-an-email")
	requireKind(t, err, apperr.Validation, "")
}
