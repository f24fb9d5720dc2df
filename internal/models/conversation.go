package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is a one-on-one message thread. Participants are stored
// sorted so the unique index on the pair prevents duplicate conversations
// between the same two users.
type Conversation struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Participants  []primitive.ObjectID `bson:"participants" json:"participants"`
	LastMessageAt time.Time            `bson:"last_message_at" json:"last_message_at"`
	CreatedAt     time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at" json:"updated_at"`
}

// Message is a single direct message inside a conversation. Delivery
// transport is out of scope; the record is the system of record only.
type Message struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Conversation     primitive.ObjectID  `bson:"conversation" json:"conversation"`
	Sender           primitive.ObjectID  `bson:"sender" json:"sender"`
	Recipient        primitive.ObjectID  `bson:"recipient" json:"recipient"`
	Content          string              `bson:"content" json:"content"`
	SenderDeleted    bool                `bson:"sender_deleted" json:"sender_deleted"`
	RecipientDeleted bool                `bson:"recipient_deleted" json:"recipient_deleted"`
	ReadAt           *time.Time          `bson:"read_at,omitempty" json:"read_at,omitempty"`
	ReplyTo          *primitive.ObjectID `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
}
