// Package db opens the database connection and migrates the schema
package db

import (
	"errors"
	"fmt"
	"os"

	"bitwise74/recipe-api/config"
	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/pkg/util"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func New(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.Type {
	case "postgres":
		dialector = postgres.Open(cfg.DB.DSN)
	default:
		// If running in a docker container don't allow the sqlite file to be created.
		// The host should instead mount it using volumes
		if util.IsRunningInDocker() {
			if _, err := os.Stat(cfg.DB.Path); errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to /app/%s", cfg.DB.Path)
			}
		}

		dialector = sqlite.Open(cfg.DB.Path + "?_foreign_keys=1")
	}

	db, err := Open(dialector)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s database, %w", cfg.DB.Type, err)
	}

	return db, nil
}

// Open connects through the given dialector and migrates all tables
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.Profile{}, "SavedRecipes", &model.SavedRecipe{}); err != nil {
		return fmt.Errorf("failed to setup saved recipes join table, %w", err)
	}

	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return nil
}
