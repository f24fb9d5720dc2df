package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a public remark on a listing, optionally replying to another
// comment. Comments are soft-deleted so that reports against them stay
// resolvable.
type Comment struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Listing       primitive.ObjectID  `bson:"listing" json:"listing"`
	Author        primitive.ObjectID  `bson:"author" json:"author"`
	ParentComment *primitive.ObjectID `bson:"parent_comment,omitempty" json:"parent_comment,omitempty"`
	Content       string              `bson:"content" json:"content"`
	IsDeleted     bool                `bson:"is_deleted" json:"is_deleted"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `bson:"updated_at" json:"updated_at"`
}
