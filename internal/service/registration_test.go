package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/internal/service"
	"bitwise74/recipe-api/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRegisterUser(t *testing.T) {
	e := newEnv(t)

	a := e.register(t, access.RoleUser, "alice")
	require.NotNil(t, a.Profile)
	assert.False(t, a.Profile.IsVerified)
	assert.Nil(t, a.ExpiresAt)
	assert.NotEqual(t, "password123", a.PasswordHash)

	mails := e.mails.Sent()
	require.Len(t, mails, 1)
	assert.Equal(t, "alice@example.com", mails[0].To)
	assert.Equal(t, "alice", mails[0].Username)
	assert.True(t, strings.HasPrefix(mails[0].URL, "http://localhost:5173/verify-email/"))

	idToken, verifyToken := tokensFromURL(t, mails[0].URL)
	assert.NotEmpty(t, idToken)
	assert.Contains(t, verifyToken, "-")

	p := e.principal(t, a.ID)
	assert.Equal(t, access.RoleUser, p.Role)
	assert.False(t, p.Verified())
}

func TestRegisterNutritionist(t *testing.T) {
	e := newEnv(t)

	a := e.register(t, access.RoleNutritionist, "nina")
	require.NotNil(t, a.Nutritionist)
	assert.Nil(t, a.Profile)
	assert.Equal(t, 5, a.Nutritionist.YearsOfExperience)

	p := e.principal(t, a.ID)
	assert.Equal(t, access.RoleNutritionist, p.Role)

	t.Run("years required", func(t *testing.T) {
		_, err := e.d.Registrar.Register(context.Background(), access.RoleNutritionist, service.AccountInput{
			Username: "noyears",
			Email:    "noyears@example.com",
			Password: "password123",
		}, &service.NutritionistInput{Qualification: "BSc"})
		requireKind(t, err, apperr.Validation, "years_of_experience is required.")
	})

	t.Run("negative years", func(t *testing.T) {
		years := -1
		_, err := e.d.Registrar.Register(context.Background(), access.RoleNutritionist, service.AccountInput{
			Username: "negative",
			Email:    "negative@example.com",
			Password: "password123",
		}, &service.NutritionistInput{YearsOfExperience: &years})
		requireKind(t, err, apperr.Validation, "years_of_experience must be at least 0.")
	})
}

func TestRegisterDuplicates(t *testing.T) {
	e := newEnv(t)
	e.register(t, access.RoleUser, "alice")

	_, err := e.d.Registrar.Register(context.Background(), access.RoleUser, service.AccountInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: "password123",
	}, nil)
	requireKind(t, err, apperr.Conflict, "A user with that username already exists.")

	_, err = e.d.Registrar.Register(context.Background(), access.RoleUser, service.AccountInput{
		Username: "bob",
		Email:    "alice@example.com",
		Password: "password123",
	}, nil)
	requireKind(t, err, apperr.Conflict, "A user with this email already exists.")

	var n int64
	require.NoError(t, e.d.DB.Model(&model.Account{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	require.NoError(t, e.d.DB.Model(&model.Profile{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	assert.Len(t, e.mails.Sent(), 1)
}

// countRows returns the number of accounts, profiles and nutritionist
// profiles
func countRows(t *testing.T, db *gorm.DB) [3]int64 {
	t.Helper()

	var out [3]int64
	for i, m := range []any{&model.Account{}, &model.Profile{}, &model.NutritionistProfile{}} {
		require.NoError(t, db.Model(m).Count(&out[i]).Error)
	}
	return out
}

func TestRegisterRollsBackFailedProfile(t *testing.T) {
	for _, role := range []access.Role{access.RoleUser, access.RoleNutritionist} {
		t.Run(role.String(), func(t *testing.T) {
			e := newEnv(t)

			err := e.d.DB.Callback().Create().Before("gorm:create").Register("test:fail_profiles", func(tx *gorm.DB) {
				switch tx.Statement.Table {
				case "profiles", "nutritionist_profiles":
					tx.AddError(errors.New("disk full"))
				}
			})
			require.NoError(t, err)

			years := 1
			_, err = e.d.Registrar.Register(context.Background(), role, service.AccountInput{
				Username: "alice",
				Email:    "alice@example.com",
				Password: "password123",
			}, &service.NutritionistInput{YearsOfExperience: &years})
			requireKind(t, err, apperr.Internal, "")

			assert.Equal(t, [3]int64{}, countRows(t, e.d.DB))
			assert.Empty(t, e.mails.Sent())
		})
	}
}

func TestRegisterMapsRacedDuplicate(t *testing.T) {
	e := newEnv(t)

	// another registration takes the username between the availability
	// check and the insert
	raced := false
	err := e.d.DB.Callback().Create().Before("gorm:create").Register("test:race_accounts", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "accounts" {
			return
		}
		raced = true

		_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"INSERT INTO accounts (username, email, password_hash, is_active) VALUES (?, ?, ?, ?)",
			"alice", "racer@example.com", "x", true,
		)
		tx.AddError(err)
	})
	require.NoError(t, err)

	_, err = e.d.Registrar.Register(context.Background(), access.RoleUser, service.AccountInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	}, nil)
	require.True(t, raced)
	requireKind(t, err, apperr.Conflict, "A user with that username or email already exists.")

	// the raced row went down with the rolled back transaction
	assert.Equal(t, [3]int64{}, countRows(t, e.d.DB))
	assert.Empty(t, e.mails.Sent())
}

func TestRegisterRejectsUsernameEmailCollisions(t *testing.T) {
	e := newEnv(t)
	e.register(t, access.RoleUser, "alice")

	_, err := e.d.Registrar.Register(context.Background(), access.RoleUser, service.AccountInput{
		Username: "alice@example.com",
		Email:    "mallory@example.com",
		Password: "password123",
	}, nil)
	requireKind(t, err, apperr.Conflict, "A user with that username already exists.")

	_, err = e.d.Registrar.Register(context.Background(), access.RoleUser, service.AccountInput{
		Username: "carol@example.com",
		Email:    "carol@example.net",
		Password: "password123",
	}, nil)
	require.NoError(t, err)

	_, err = e.d.Registrar.Register(context.Background(), access.RoleUser, service.AccountInput{
		Username: "carol",
		Email:    "carol@example.com",
		Password: "password123",
	}, nil)
	requireKind(t, err, apperr.Conflict, "A user with this email already exists.")

	var n int64
	require.NoError(t, e.d.DB.Model(&model.Account{}).Count(&n).Error)
	assert.Equal(t, int64(2), n)
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		in   service.AccountInput
	}{
		{"bad username", service.AccountInput{Username: "no spaces", Email: "a@example.com", Password: "password123"}},
		{"bad email", service.AccountInput{Username: "alice", Email: "not-an-email", Password: "password123"}},
		{"short password", service.AccountInput{Username: "alice", Email: "a@example.com", Password: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.d.Registrar.Register(context.Background(), access.RoleUser, tt.in, nil)
			requireKind(t, err, apperr.Validation, "")
		})
	}

	var n int64
	require.NoError(t, e.d.DB.Model(&model.Account{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	e := newEnv(t)
	e.mails.Err = errors.New("queue down")

	a := e.register(t, access.RoleUser, "alice")
	assert.NotZero(t, a.ID)
	assert.Empty(t, e.mails.Sent())
}

func TestRegisterSetsExpiry(t *testing.T) {
	e := newEnv(t)
	r := service.NewRegistrar(e.d.DB, e.d.Argon, e.d.Verifier, time.Hour)

	a, err := r.Register(context.Background(), access.RoleUser, service.AccountInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, a.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *a.ExpiresAt, time.Minute)

	idToken, verifyToken := tokensFromURL(t, e.mails.Sent()[0].URL)
	require.NoError(t, e.d.Verifier.Confirm(context.Background(), idToken, verifyToken))

	var stored model.Account
	require.NoError(t, e.d.DB.First(&stored, a.ID).Error)
	assert.Nil(t, stored.ExpiresAt)
}
