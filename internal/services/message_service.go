package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rileyflames/marketplace/internal/apperr"
	"github.com/rileyflames/marketplace/internal/config"
	"github.com/rileyflames/marketplace/internal/db"
	"github.com/rileyflames/marketplace/internal/models"
)

// IMessageService defines the interface for direct messaging between users.
type IMessageService interface {
	SendMessage(ctx context.Context, sender *models.User, recipientID primitive.ObjectID, content string, replyTo *primitive.ObjectID) (*models.Message, error)
	ListConversations(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Conversation, error)
	ListMessages(ctx context.Context, conversationID primitive.ObjectID, viewer *models.User, limit int64) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID primitive.ObjectID, reader *models.User) error
}

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

// messageService implements IMessageService.
type messageService struct {
	db   *mongo.Database
	cfg  *config.Config
	gate *TrustGate
}

// NewMessageService creates a new MessageService.
func NewMessageService(database *mongo.Database, cfg *config.Config, gate *TrustGate) IMessageService {
	return &messageService{db: database, cfg: cfg, gate: gate}
}

// participantPair returns the two user IDs in canonical (sorted) order, which
// is how conversations store them so the unique index can deduplicate.
func participantPair(a, b primitive.ObjectID) []primitive.ObjectID {
	if a.Hex() > b.Hex() {
		a, b = b, a
	}
	return []primitive.ObjectID{a, b}
}

// SendMessage delivers a direct message, creating the conversation on first
// contact. Losing the conversation-insert race is fine: the duplicate-key
// error means the other side created it, and we fetch theirs.
func (s *messageService) SendMessage(ctx context.Context, sender *models.User, recipientID primitive.ObjectID, content string, replyTo *primitive.ObjectID) (*models.Message, error) {
	if err := s.gate.Allow(sender, false); err != nil {
		return nil, err
	}
	if recipientID == sender.ID {
		return nil, apperr.Validation("users cannot message themselves")
	}
	content = strings.TrimSpace(content)
	if content == "" || len(content) > 5000 {
		return nil, apperr.Validation("content is required and cannot exceed 5000 characters")
	}

	count, err := s.db.Collection(usersCollection).CountDocuments(ctx, bson.M{"_id": recipientID})
	if err != nil {
		return nil, fmt.Errorf("error checking recipient %s: %w", recipientID.Hex(), err)
	}
	if count == 0 {
		return nil, apperr.NotFound("user %s not found", recipientID.Hex())
	}

	conversation, err := s.getOrCreateConversation(ctx, sender.ID, recipientID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	message := &models.Message{
		ID:           primitive.NewObjectID(),
		Conversation: conversation.ID,
		Sender:       sender.ID,
		Recipient:    recipientID,
		Content:      content,
		ReplyTo:      replyTo,
		CreatedAt:    now,
	}

	err = db.Try(func() error {
		_, insertErr := s.db.Collection(messagesCollection).InsertOne(ctx, message)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert message in conversation %s: %w", conversation.ID.Hex(), err)
	}

	update := bson.M{"$set": bson.M{"last_message_at": now, "updated_at": now}}
	if _, err := s.db.Collection(conversationsCollection).UpdateOne(ctx, bson.M{"_id": conversation.ID}, update); err != nil {
		return nil, fmt.Errorf("failed to bump conversation %s: %w", conversation.ID.Hex(), err)
	}

	return message, nil
}

func (s *messageService) getOrCreateConversation(ctx context.Context, a, b primitive.ObjectID) (*models.Conversation, error) {
	pair := participantPair(a, b)

	var conversation models.Conversation
	err := s.db.Collection(conversationsCollection).
		FindOne(ctx, bson.M{"participants": pair}).Decode(&conversation)
	if err == nil {
		return &conversation, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error finding conversation: %w", err)
	}

	now := time.Now().UTC()
	conversation = models.Conversation{
		ID:            primitive.NewObjectID(),
		Participants:  pair,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = db.Try(func() error {
		_, insertErr := s.db.Collection(conversationsCollection).InsertOne(ctx, conversation)
		return insertErr
	})
	if err == nil {
		return &conversation, nil
	}
	if !db.IsDup(err) {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	// Concurrent first contact: the other side won the insert.
	err = s.db.Collection(conversationsCollection).
		FindOne(ctx, bson.M{"participants": pair}).Decode(&conversation)
	if err != nil {
		return nil, fmt.Errorf("error refetching conversation after duplicate insert: %w", err)
	}
	return &conversation, nil
}

// ListConversations returns a user's conversations, most recently active
// first.
func (s *messageService) ListConversations(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	opts := findSortedDesc("last_message_at").SetLimit(limit)
	cursor, err := s.db.Collection(conversationsCollection).Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing conversations for user %s: %w", userID.Hex(), err)
	}
	defer cursor.Close(ctx)

	conversations := []models.Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("error decoding conversations for user %s: %w", userID.Hex(), err)
	}
	return conversations, nil
}

// ListMessages returns a conversation's messages, newest first, hiding the
// ones the viewer deleted on their side.
func (s *messageService) ListMessages(ctx context.Context, conversationID primitive.ObjectID, viewer *models.User, limit int64) ([]models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	conversation, err := s.findConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversationHas(conversation, viewer.ID) {
		return nil, apperr.Forbidden("user %s is not a participant in conversation %s", viewer.Username, conversationID.Hex())
	}

	filter := bson.M{
		"conversation": conversationID,
		"$or": bson.A{
			bson.M{"sender": viewer.ID, "sender_deleted": false},
			bson.M{"recipient": viewer.ID, "recipient_deleted": false},
		},
	}
	opts := findSortedDesc("created_at").SetLimit(limit)
	cursor, err := s.db.Collection(messagesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing messages in conversation %s: %w", conversationID.Hex(), err)
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("error decoding messages in conversation %s: %w", conversationID.Hex(), err)
	}
	return messages, nil
}

// MarkRead stamps all unread messages addressed to the reader in a
// conversation. Idempotent.
func (s *messageService) MarkRead(ctx context.Context, conversationID primitive.ObjectID, reader *models.User) error {
	conversation, err := s.findConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversationHas(conversation, reader.ID) {
		return apperr.Forbidden("user %s is not a participant in conversation %s", reader.Username, conversationID.Hex())
	}

	filter := bson.M{
		"conversation": conversationID,
		"recipient":    reader.ID,
		"read_at":      bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"read_at": time.Now().UTC()}}
	if _, err := s.db.Collection(messagesCollection).UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("db error marking conversation %s read: %w", conversationID.Hex(), err)
	}
	return nil
}

func (s *messageService) findConversation(ctx context.Context, conversationID primitive.ObjectID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := s.db.Collection(conversationsCollection).FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conversation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("conversation %s not found", conversationID.Hex())
		}
		return nil, fmt.Errorf("error finding conversation %s: %w", conversationID.Hex(), err)
	}
	return &conversation, nil
}

func conversationHas(c *models.Conversation, userID primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
