package model

import "time"

type ResendRequest struct {
	ID         uint `gorm:"primaryKey;autoIncrement"`
	AccountID  uint `gorm:"uniqueIndex"`
	LastResend time.Time
	Cooldown   time.Time
}
