package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportTargetType identifies what kind of entity a report is raised against.
type ReportTargetType string

const (
	TargetListing ReportTargetType = "listing"
	TargetComment ReportTargetType = "comment"
)

// Valid reports whether the target type is one of the known values.
func (t ReportTargetType) Valid() bool {
	return t == TargetListing || t == TargetComment
}

// Report is a moderation flag raised by a user against a listing or comment.
// Reports are never deduplicated: each one is independently actionable and
// terminal once reviewed or dismissed.
type Report struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Reporter       primitive.ObjectID  `bson:"reporter" json:"reporter"`
	TargetType     ReportTargetType    `bson:"target_type" json:"target_type"`
	TargetID       primitive.ObjectID  `bson:"target_id" json:"target_id"`
	Reason         string              `bson:"reason" json:"reason"`
	AdditionalInfo string              `bson:"additional_info,omitempty" json:"additional_info,omitempty"`
	Status         ReportStatus        `bson:"status" json:"status"`
	ReviewedBy     *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at" json:"updated_at"`
}
