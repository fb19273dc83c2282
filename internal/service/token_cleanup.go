package service

import (
	"context"
	"time"

	"bitwise74/recipe-api/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurgeExpiredTokens removes blacklist rows of refresh tokens that expired
// on their own and can't be presented anymore
func PurgeExpiredTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&model.BlacklistedToken{})

	return res.RowsAffected, res.Error
}

// TokenCleanup periodically purges the refresh token blacklist until ctx
// is done
func TokenCleanup(ctx context.Context, t time.Duration, db *gorm.DB) {
	ticker := time.NewTicker(t)
	defer ticker.Stop()

	zap.L().Debug("Token cleanup attached", zap.Duration("tick_every", t))

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := PurgeExpiredTokens(ctx, db, now)
			if err != nil {
				zap.L().Error("Failed to cleanup blacklisted tokens", zap.Error(err))
				continue
			}

			if n > 0 {
				zap.L().Debug("Cleaned up expired tokens", zap.Int64("count", n))
			}
		}
	}
}
