package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rating is a single reputation record left by one user for another after a
// transaction on a listing. At most one rating may exist per
// (From, To, Listing) triple, enforced by a unique index, and ratings are
// immutable once written.
type Rating struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	From      primitive.ObjectID `bson:"from" json:"from"`
	To        primitive.ObjectID `bson:"to" json:"to"`
	Listing   primitive.ObjectID `bson:"listing" json:"listing"`
	Score     int                `bson:"score" json:"score"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Score bounds and the good/bad classification thresholds.
const (
	MinScore  = 1
	MaxScore  = 5
	GoodScore = 4 // score >= GoodScore counts towards GoodCount
	BadScore  = 2 // score <= BadScore counts towards BadCount
)
