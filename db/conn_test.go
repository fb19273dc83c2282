package db_test

import (
	"testing"

	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMigrate(t *testing.T) {
	g := testutil.NewDB(t)

	for _, m := range model.All() {
		assert.True(t, g.Migrator().HasTable(m), "%T", m)
	}

	assert.True(t, g.Migrator().HasTable("profile_saved_recipes"))
}

func TestDuplicateKeyIsTranslated(t *testing.T) {
	g := testutil.NewDB(t)

	require.NoError(t, g.Create(&model.Account{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}).Error)

	err := g.Create(&model.Account{Username: "alice", Email: "other@example.com", PasswordHash: "x"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestForeignKeysEnforced(t *testing.T) {
	g := testutil.NewDB(t)

	err := g.Create(&model.Recipe{CreatorID: 42, Title: "x", Ingredients: "y", Instructions: "z", Image: model.DefaultRecipeImage}).Error
	assert.Error(t, err)
}
