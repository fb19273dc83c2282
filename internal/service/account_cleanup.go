package service

import (
	"context"
	"time"

	"bitwise74/recipe-api/internal/model"
	"bitwise74/recipe-api/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurgeUnverifiedAccounts deletes every account whose verification
// deadline passed, together with everything it owns
func PurgeUnverifiedAccounts(ctx context.Context, db *gorm.DB, images storage.ImageStore, now time.Time) (int, error) {
	var accounts []model.Account
	err := db.WithContext(ctx).
		Preload("Profile").
		Preload("Nutritionist").
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Where("is_staff = ?", false).
		Find(&accounts).
		Error
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i := range accounts {
		var keys []string

		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			keys, err = deleteAccount(tx, &accounts[i])
			return err
		})
		if err != nil {
			zap.L().Error("Failed to delete unverified account", zap.Uint("account_id", accounts[i].ID), zap.Error(err))
			continue
		}

		removeImages(ctx, images, keys)
		deleted++
	}

	return deleted, nil
}

// AccountCleanup periodically deletes accounts that never verified their
// email until ctx is done
func AccountCleanup(ctx context.Context, t time.Duration, db *gorm.DB, images storage.ImageStore) {
	ticker := time.NewTicker(t)
	defer ticker.Stop()

	zap.L().Debug("Account cleanup attached", zap.Duration("tick_every", t))

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := PurgeUnverifiedAccounts(ctx, db, images, now)
			if err != nil {
				zap.L().Error("Failed to query db for accounts to clean", zap.Error(err))
				continue
			}

			zap.L().Debug("Account cleanup finished", zap.Int("deleted", n))
		}
	}
}
