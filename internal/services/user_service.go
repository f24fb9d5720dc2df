package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rileyflames/marketplace/internal/apperr"
	"github.com/rileyflames/marketplace/internal/auth"
	"github.com/rileyflames/marketplace/internal/db"
	"github.com/rileyflames/marketplace/internal/models"
)

// IUserService defines the interface for user-related operations.
// This allows for easier mocking in tests.
type IUserService interface {
	Register(ctx context.Context, name, username, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, login, password string) (*models.User, error)
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	BanUser(ctx context.Context, targetID primitive.ObjectID, moderator *models.User, reason string) error
	WarnUser(ctx context.Context, targetID primitive.ObjectID, moderator *models.User) (*models.User, error)
}

const usersCollection = "users"

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)
	emailRe    = regexp.MustCompile(`.+@.+\..+`)
)

// userService implements IUserService.
type userService struct {
	db *mongo.Database
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database) IUserService {
	return &userService{db: database}
}

// Register creates a new user account. Username and email uniqueness is
// enforced by the unique indexes; a duplicate surfaces as a conflict.
func (s *userService) Register(ctx context.Context, name, username, email, password string) (*models.User, error) {
	if len(strings.TrimSpace(name)) < 3 {
		return nil, apperr.Validation("name must be at least 3 characters long")
	}
	if !usernameRe.MatchString(username) {
		return nil, apperr.Validation("username must be 3-30 characters of letters, numbers, underscores and hyphens")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRe.MatchString(email) {
		return nil, apperr.Validation("invalid email address")
	}
	if len(password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters long")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password for %s: %w", username, err)
	}

	now := time.Now().UTC()
	newUser := &models.User{
		ID:           primitive.NewObjectID(),
		Name:         strings.TrimSpace(name),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Badges:       []string{"regular"},
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	collection := s.db.Collection(usersCollection)
	err = db.Try(func() error {
		_, insertErr := collection.InsertOne(ctx, newUser)
		return insertErr
	})
	if err != nil {
		if db.IsDup(err) {
			return nil, apperr.Conflict("username or email already in use")
		}
		return nil, fmt.Errorf("failed to insert user %s: %w", username, err)
	}

	return newUser, nil
}

// Authenticate verifies a username-or-email plus password pair.
// The same forbidden error is returned for unknown accounts and wrong
// passwords so callers cannot probe which accounts exist.
func (s *userService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"username": login},
		bson.M{"email": strings.ToLower(login)},
	}}

	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Forbidden("invalid credentials")
		}
		return nil, fmt.Errorf("error finding user %s: %w", login, err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.Forbidden("invalid credentials")
	}
	return &user, nil
}

// FindByID finds a user by their ID.
func (s *userService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("user %s not found", userID.Hex())
		}
		return nil, fmt.Errorf("error finding user by ID %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// FindByUsername finds a user by their username.
func (s *userService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("user %s not found", username)
		}
		return nil, fmt.Errorf("error finding user by username %s: %w", username, err)
	}
	return &user, nil
}

// BanUser marks a user as banned. Users are never deleted, only flagged.
// Moderators cannot ban themselves.
func (s *userService) BanUser(ctx context.Context, targetID primitive.ObjectID, moderator *models.User, reason string) error {
	if !moderator.Role.IsModerator() {
		return apperr.Forbidden("user %s is not a moderator", moderator.Username)
	}
	if targetID == moderator.ID {
		return apperr.Validation("moderators cannot ban themselves")
	}
	if strings.TrimSpace(reason) == "" {
		return apperr.Validation("ban reason is required")
	}

	update := bson.M{"$set": bson.M{
		"banned":     true,
		"ban_reason": reason,
		"banned_by":  moderator.ID,
		"updated_at": time.Now().UTC(),
	}}
	result, err := s.db.Collection(usersCollection).UpdateByID(ctx, targetID, update)
	if err != nil {
		return fmt.Errorf("db error banning user %s: %w", targetID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("user %s not found", targetID.Hex())
	}
	log.Printf("User %s banned by %s: %s", targetID.Hex(), moderator.Username, reason)
	return nil
}

// WarnUser increments a user's warning counter and returns the updated user.
func (s *userService) WarnUser(ctx context.Context, targetID primitive.ObjectID, moderator *models.User) (*models.User, error) {
	if !moderator.Role.IsModerator() {
		return nil, apperr.Forbidden("user %s is not a moderator", moderator.Username)
	}
	if targetID == moderator.ID {
		return nil, apperr.Validation("moderators cannot warn themselves")
	}

	update := bson.M{
		"$inc": bson.M{"warnings": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	var updated models.User
	err := s.db.Collection(usersCollection).FindOneAndUpdate(ctx, bson.M{"_id": targetID}, update,
		findOneAndUpdateReturnAfter()).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("user %s not found", targetID.Hex())
		}
		return nil, fmt.Errorf("db error warning user %s: %w", targetID.Hex(), err)
	}
	log.Printf("User %s warned by %s (now %d warnings)", targetID.Hex(), moderator.Username, updated.Warnings)
	return &updated, nil
}
