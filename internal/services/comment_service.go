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

// ICommentService defines the interface for listing comment operations.
type ICommentService interface {
	CreateComment(ctx context.Context, author *models.User, listingID primitive.ObjectID, parent *primitive.ObjectID, content string) (*models.Comment, error)
	ListComments(ctx context.Context, listingID primitive.ObjectID, limit int64) ([]models.Comment, error)
	DeleteComment(ctx context.Context, commentID primitive.ObjectID, actor *models.User) error
}

// commentService implements ICommentService.
type commentService struct {
	db   *mongo.Database
	cfg  *config.Config
	gate *TrustGate
}

// NewCommentService creates a new CommentService.
func NewCommentService(database *mongo.Database, cfg *config.Config, gate *TrustGate) ICommentService {
	return &commentService{db: database, cfg: cfg, gate: gate}
}

// CreateComment posts a comment on a non-locked listing and bumps the
// listing's denormalized comment counter.
func (s *commentService) CreateComment(ctx context.Context, author *models.User, listingID primitive.ObjectID, parent *primitive.ObjectID, content string) (*models.Comment, error) {
	if err := s.gate.Allow(author, false); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" || len(content) > 2000 {
		return nil, apperr.Validation("content is required and cannot exceed 2000 characters")
	}

	var listing models.Listing
	err := s.db.Collection(listingsCollection).
		FindOne(ctx, bson.M{"_id": listingID, "deleted": false}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("listing %s not found", listingID.Hex())
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID.Hex(), err)
	}
	if listing.IsLocked {
		return nil, apperr.Conflict("listing %s is locked", listingID.Hex())
	}

	if parent != nil {
		count, err := s.db.Collection(commentsCollection).
			CountDocuments(ctx, bson.M{"_id": *parent, "listing": listingID, "is_deleted": false})
		if err != nil {
			return nil, fmt.Errorf("error checking parent comment %s: %w", parent.Hex(), err)
		}
		if count == 0 {
			return nil, apperr.NotFound("parent comment %s not found on this listing", parent.Hex())
		}
	}

	now := time.Now().UTC()
	comment := &models.Comment{
		ID:            primitive.NewObjectID(),
		Listing:       listingID,
		Author:        author.ID,
		ParentComment: parent,
		Content:       content,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = db.Try(func() error {
		_, insertErr := s.db.Collection(commentsCollection).InsertOne(ctx, comment)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment on listing %s: %w", listingID.Hex(), err)
	}

	update := bson.M{"$inc": bson.M{"comments_count": 1}, "$set": bson.M{"updated_at": now}}
	if _, err := s.db.Collection(listingsCollection).UpdateOne(ctx, bson.M{"_id": listingID}, update); err != nil {
		return nil, fmt.Errorf("failed to bump comment count on listing %s: %w", listingID.Hex(), err)
	}

	return comment, nil
}

// ListComments returns the comments on a listing, oldest first, excluding
// soft-deleted ones.
func (s *commentService) ListComments(ctx context.Context, listingID primitive.ObjectID, limit int64) ([]models.Comment, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	opts := findSortedAsc("created_at").SetLimit(limit)
	filter := bson.M{"listing": listingID, "is_deleted": false}
	cursor, err := s.db.Collection(commentsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing comments for listing %s: %w", listingID.Hex(), err)
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("error decoding comments for listing %s: %w", listingID.Hex(), err)
	}
	return comments, nil
}

// DeleteComment soft-deletes a comment. The author or any moderator may do
// it; the conditional update makes repeat deletions report a conflict.
func (s *commentService) DeleteComment(ctx context.Context, commentID primitive.ObjectID, actor *models.User) error {
	var comment models.Comment
	err := s.db.Collection(commentsCollection).FindOne(ctx, bson.M{"_id": commentID}).Decode(&comment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("comment %s not found", commentID.Hex())
		}
		return fmt.Errorf("error finding comment %s: %w", commentID.Hex(), err)
	}
	if comment.Author != actor.ID && !actor.Role.IsModerator() {
		return apperr.Forbidden("only the author or a moderator can delete comment %s", commentID.Hex())
	}

	now := time.Now().UTC()
	filter := bson.M{"_id": commentID, "is_deleted": false}
	update := bson.M{"$set": bson.M{"is_deleted": true, "updated_at": now}}
	result, err := s.db.Collection(commentsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error deleting comment %s: %w", commentID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return apperr.Conflict("comment %s is already deleted", commentID.Hex())
	}

	decr := bson.M{"$inc": bson.M{"comments_count": -1}, "$set": bson.M{"updated_at": now}}
	if _, err := s.db.Collection(listingsCollection).UpdateOne(ctx, bson.M{"_id": comment.Listing}, decr); err != nil {
		return fmt.Errorf("failed to decrement comment count on listing %s: %w", comment.Listing.Hex(), err)
	}
	return nil
}
