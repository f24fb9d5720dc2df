package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DisputeMessage is one entry in a dispute's append-only message thread.
type DisputeMessage struct {
	Sender    primitive.ObjectID `bson:"sender" json:"sender"`
	Text      string             `bson:"text" json:"text"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// Resolution records the outcome of a resolved dispute.
type Resolution struct {
	Summary    string    `bson:"summary" json:"summary"`
	ResolvedAt time.Time `bson:"resolved_at" json:"resolved_at"`
}

// Dispute is a moderated conflict thread between two users tied to a
// listing. Its status is monotonic: resolved and closed are terminal. While
// a dispute is open, both participants carry HasActiveDispute on their user
// records.
type Dispute struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Listing    primitive.ObjectID  `bson:"listing" json:"listing"`
	OpenedBy   primitive.ObjectID  `bson:"opened_by" json:"opened_by"`
	Against    primitive.ObjectID  `bson:"against" json:"against"`
	Messages   []DisputeMessage    `bson:"messages" json:"messages"`
	Status     DisputeStatus       `bson:"status" json:"status"`
	Moderator  *primitive.ObjectID `bson:"moderator,omitempty" json:"moderator,omitempty"`
	Resolution *Resolution         `bson:"resolution,omitempty" json:"resolution,omitempty"`
	// Public defaults to true at creation; only the opener can ask for a
	// private thread.
	Public    bool      `bson:"public" json:"public"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsParticipant reports whether the given user opened the dispute or is the
// party it was opened against.
func (d *Dispute) IsParticipant(userID primitive.ObjectID) bool {
	return d.OpenedBy == userID || d.Against == userID
}
