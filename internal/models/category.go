package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CategoryNames is the closed set of category names listings may use.
var CategoryNames = []string{
	"phones", "laptops", "tablets", "pcs", "components", "peripherals",
	"networking", "smart-home", "consoles", "games", "collectibles",
	"accessories", "wearables", "software", "repairs", "clothes", "other",
}

// ValidCategoryName reports whether name is in the closed category set.
func ValidCategoryName(name string) bool {
	for _, n := range CategoryNames {
		if n == name {
			return true
		}
	}
	return false
}

// Category is a listing category. The name set is closed; documents exist so
// listings can hold a stable reference.
type Category struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Icon        string             `bson:"icon,omitempty" json:"icon,omitempty"`
	IsActive    bool               `bson:"is_active" json:"is_active"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
