// Package model defines database models
package model

import "time"

type Account struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	IsActive     bool   `gorm:"default:true" json:"-"`
	IsStaff      bool   `json:"-"`
	// ExpiresAt is set for accounts that haven't verified yet. Once it passes
	// the account cleanup removes the account. Cleared on verification.
	ExpiresAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt time.Time  `json:"-"`

	Profile      *Profile             `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Nutritionist *NutritionistProfile `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Summary is the short form of an account nested into other resources
type Summary struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (a *Account) Summary() Summary {
	return Summary{Username: a.Username, Email: a.Email}
}

// All returns every model that has to be migrated
func All() []any {
	return []any{
		&Account{},
		&Profile{},
		&NutritionistProfile{},
		&Recipe{},
		&SavedRecipe{},
		&Blog{},
		&BlacklistedToken{},
		&ResendRequest{},
	}
}
