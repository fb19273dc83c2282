package service_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bitwise74/recipe-api/internal"
	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/internal/service"
	"bitwise74/recipe-api/internal/storage"
	"bitwise74/recipe-api/internal/testutil"
	"bitwise74/recipe-api/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAccount(t *testing.T) {
	e := newEnv(t)
	alice := e.verified(t, access.RoleUser, "alice")
	e.verified(t, access.RoleUser, "bob")

	a, err := e.d.Accounts.Update(context.Background(), alice.Account, service.AccountUpdate{
		Username: ptr("alice2"),
		Password: ptr("newpassword1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice2", a.Username)
	assert.Equal(t, "alice@example.com", a.Email)

	_, err = e.d.Auth.Login(context.Background(), "alice2", "newpassword1")
	require.NoError(t, err)

	_, err = e.d.Accounts.Update(context.Background(), alice.Account, service.AccountUpdate{Username: ptr("bob")})
	requireKind(t, err, apperr.Conflict, "A user with that username already exists.")

	_, err = e.d.Accounts.Update(context.Background(), alice.Account, service.AccountUpdate{Email: ptr("bob@example.com")})
	requireKind(t, err, apperr.Conflict, "A user with that email already exists.")

	// usernames and emails can't shadow each other
	_, err = e.d.Accounts.Update(context.Background(), alice.Account, service.AccountUpdate{Username: ptr("bob@example.com")})
	requireKind(t, err, apperr.Conflict, "A user with that username already exists.")

	_, err = e.d.Accounts.Update(context.Background(), alice.Account, service.AccountUpdate{Email: ptr("broken")})
	requireKind(t, err, apperr.Validation, "")

	// keeping your own email is not a conflict
	_, err = e.d.Accounts.Update(context.Background(), alice.Account, service.AccountUpdate{Email: ptr("alice@example.com")})
	require.NoError(t, err)
}

func TestUpdateNutritionist(t *testing.T) {
	e := newEnv(t)
	nina := e.verified(t, access.RoleNutritionist, "nina")
	alice := e.verified(t, access.RoleUser, "alice")

	n, err := e.d.Accounts.UpdateNutritionist(context.Background(), nina, service.NutritionistUpdate{
		User:              service.AccountUpdate{Email: ptr("nina@clinic.example.com")},
		Qualification:     ptr("PhD Nutrition"),
		YearsOfExperience: ptr(12),
	})
	require.NoError(t, err)
	assert.Equal(t, "PhD Nutrition", n.Qualification)
	assert.Equal(t, 12, n.YearsOfExperience)
	assert.Equal(t, "nina@clinic.example.com", n.Account.Email)

	_, err = e.d.Accounts.UpdateNutritionist(context.Background(), nina, service.NutritionistUpdate{YearsOfExperience: ptr(-3)})
	requireKind(t, err, apperr.Validation, "")

	_, err = e.d.Accounts.UpdateNutritionist(context.Background(), alice, service.NutritionistUpdate{})
	requireKind(t, err, apperr.Forbidden, "")
}

func TestListAccounts(t *testing.T) {
	e := newEnv(t)
	e.verified(t, access.RoleUser, "alice")
	e.register(t, access.RoleUser, "pending")
	e.verified(t, access.RoleNutritionist, "nina")
	e.register(t, access.RoleNutritionist, "nora")

	profiles, err := e.d.Accounts.ListProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "alice", profiles[0].Account.Username)

	ns, err := e.d.Accounts.ListNutritionists(context.Background())
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "nina", ns[0].Account.Username)
}

func TestDeleteAccount(t *testing.T) {
	e := newEnv(t)
	alice := e.verified(t, access.RoleUser, "alice")
	bob := e.verified(t, access.RoleUser, "bob")
	staff := e.staff(t)

	r := e.recipe(t, alice, "Soup", true)
	bobs := e.recipe(t, bob, "Stew", true)
	require.NoError(t, e.d.Catalog.Save(context.Background(), bob, r.ID))
	require.NoError(t, e.d.Catalog.Save(context.Background(), alice, bobs.ID))

	err := e.d.Accounts.Delete(context.Background(), bob, "alice")
	requireKind(t, err, apperr.Forbidden, "You do not have permission to delete this account.")

	err = e.d.Accounts.Delete(context.Background(), alice, "nobody")
	requireKind(t, err, apperr.NotFound, "Not found.")

	require.NoError(t, e.d.Accounts.Delete(context.Background(), alice, "alice"))

	var n int64
	require.NoError(t, e.d.DB.Model(&model.Account{}).Where("username = ?", "alice").Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, e.d.DB.Model(&model.Recipe{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	require.NoError(t, e.d.DB.Model(&model.SavedRecipe{}).Count(&n).Error)
	assert.Zero(t, n)

	require.NoError(t, e.d.Accounts.Delete(context.Background(), staff, "bob"))
	require.NoError(t, e.d.DB.Model(&model.Profile{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDeleteNutritionistRemovesBlogs(t *testing.T) {
	e := newEnv(t)
	nina := e.verified(t, access.RoleNutritionist, "nina")
	e.blog(t, nina, "Greens")

	require.NoError(t, e.d.Accounts.Delete(context.Background(), nina, "nina"))

	var n int64
	require.NoError(t, e.d.DB.Model(&model.Blog{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, e.d.DB.Model(&model.NutritionistProfile{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestEnsureStaff(t *testing.T) {
	e := newEnv(t)
	cfg := testutil.Config().Admin

	require.NoError(t, e.d.Accounts.EnsureStaff(context.Background(), cfg))
	require.NoError(t, e.d.Accounts.EnsureStaff(context.Background(), cfg))

	var n int64
	require.NoError(t, e.d.DB.Model(&model.Account{}).Where("is_staff = ?", true).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestPurgeUnverifiedAccounts(t *testing.T) {
	root := t.TempDir()
	images, err := storage.NewLocalStore(root)
	require.NoError(t, err)

	db := testutil.NewDB(t)
	mails := &testutil.MailQueue{}
	cfg := testutil.Config()
	cfg.Accounts.UnverifiedTTL = time.Hour

	e := &env{mails: mails, gen: &fakeGenerator{}}
	e.d = internal.NewDeps(cfg, db, mails, images, e.gen)

	stale := e.register(t, access.RoleUser, "stale")
	kept := e.verified(t, access.RoleUser, "kept")

	// an unverified account that already posted a recipe with an image
	require.NoError(t, images.Put(context.Background(), "recipes/stale.png", strings.NewReader("img"), "image/png"))
	require.NoError(t, db.Model(&model.Profile{}).Where("id = ?", stale.Profile.ID).Update("is_verified", true).Error)
	staleP := e.principal(t, stale.ID)
	_, err = e.d.Catalog.Create(context.Background(), staleP, service.RecipeInput{
		Title: "Old", Ingredients: "a", Instructions: "b", Image: "recipes/stale.png",
	})
	require.NoError(t, err)

	n, err := service.PurgeUnverifiedAccounts(context.Background(), db, images, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = service.PurgeUnverifiedAccounts(context.Background(), db, images, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var accounts []model.Account
	require.NoError(t, db.Find(&accounts).Error)
	require.Len(t, accounts, 1)
	assert.Equal(t, kept.Account.ID, accounts[0].ID)

	_, err = os.Stat(filepath.Join(root, "recipes", "stale.png"))
	assert.True(t, os.IsNotExist(err))
}
