package model

import "time"

type Profile struct {
	ID         uint     `gorm:"primaryKey;autoIncrement" json:"-"`
	AccountID  uint     `gorm:"uniqueIndex;not null" json:"-"`
	Account    *Account `json:"user,omitempty"`
	IsVerified bool     `json:"is_verified"`

	SavedRecipes []Recipe `gorm:"many2many:profile_saved_recipes" json:"saved_recipes"`
}

// SavedRecipe is the join row between a profile and a recipe it saved
type SavedRecipe struct {
	ProfileID uint `gorm:"primaryKey"`
	RecipeID  uint `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (SavedRecipe) TableName() string {
	return "profile_saved_recipes"
}

type NutritionistProfile struct {
	ID                uint     `gorm:"primaryKey;autoIncrement" json:"-"`
	AccountID         uint     `gorm:"uniqueIndex;not null" json:"-"`
	Account           *Account `json:"user,omitempty"`
	Qualification     string   `gorm:"not null" json:"qualification"`
	YearsOfExperience int      `gorm:"not null" json:"years_of_experience"`
	IsVerified        bool     `json:"is_verified"`
}
