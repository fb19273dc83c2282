package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type BlogStatus string

const (
	BlogPending  BlogStatus = "P"
	BlogApproved BlogStatus = "A"
	BlogRejected BlogStatus = "R"
)

var blogStatusNames = map[BlogStatus]string{
	BlogPending:  "Pending",
	BlogApproved: "Approved",
	BlogRejected: "Rejected",
}

// Display returns the human readable name of the status
func (s BlogStatus) Display() string {
	if n, ok := blogStatusNames[s]; ok {
		return n
	}

	return string(s)
}

// ParseBlogStatus accepts either the stored code or the display name
func ParseBlogStatus(s string) (BlogStatus, error) {
	s = strings.TrimSpace(s)

	for code, name := range blogStatusNames {
		if s == string(code) || strings.EqualFold(s, name) {
			return code, nil
		}
	}

	return "", fmt.Errorf("unknown blog status %q", s)
}

type Blog struct {
	ID             uint                 `gorm:"primaryKey;autoIncrement" json:"id"`
	NutritionistID uint                 `gorm:"index;not null" json:"-"`
	Nutritionist   *NutritionistProfile `gorm:"constraint:OnDelete:CASCADE" json:"nutritionist,omitempty"`
	Title          string               `gorm:"size:300;not null" json:"title"`
	Content        string               `gorm:"not null" json:"content"`
	Status         BlogStatus           `gorm:"size:1;not null;default:P;index" json:"-"`
	CreatedAt      time.Time            `json:"created_at"`
	ModifiedAt     time.Time            `gorm:"autoUpdateTime" json:"modified_at"`
}

func (b Blog) MarshalJSON() ([]byte, error) {
	type alias Blog

	return json.Marshal(struct {
		alias
		Status string `json:"status"`
	}{alias(b), b.Status.Display()})
}
