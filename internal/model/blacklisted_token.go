package model

import "time"

// BlacklistedToken is a refresh token that can't be used anymore, either
// because it was rotated or because its owner logged out
type BlacklistedToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	JTI       string    `gorm:"uniqueIndex;not null"`
	AccountID uint      `gorm:"index"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}
