package model

import (
	"encoding/json"
	"time"
)

const DefaultRecipeImage = "recipes/default.jpg"

type Recipe struct {
	ID           uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatorID    uint     `gorm:"index;not null" json:"-"`
	Creator      *Profile `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title        string   `gorm:"size:100;not null" json:"title"`
	Ingredients  string   `gorm:"not null" json:"ingredients"`
	Instructions string   `gorm:"not null" json:"instructions"`
	Image        string   `gorm:"not null" json:"image"`
	// No default tag here, gorm would replace an explicit false with it
	IsPublic   bool      `gorm:"not null" json:"is_public"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `gorm:"autoUpdateTime" json:"modified_at"`
}

// MarshalJSON renders the creator as its username when it's loaded
func (r Recipe) MarshalJSON() ([]byte, error) {
	type alias Recipe

	var creator string
	if r.Creator != nil && r.Creator.Account != nil {
		creator = r.Creator.Account.Username
	}

	return json.Marshal(struct {
		alias
		Creator string `json:"creator,omitempty"`
	}{alias(r), creator})
}
