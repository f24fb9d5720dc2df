package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rileyflames/marketplace/internal/models"
	"github.com/rileyflames/marketplace/internal/services"
)

// --- Mocks ---

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, name, username, email, password string) (*models.User, error) {
	args := m.Called(ctx, name, username, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	args := m.Called(ctx, login, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) BanUser(ctx context.Context, targetID primitive.ObjectID, moderator *models.User, reason string) error {
	args := m.Called(ctx, targetID, moderator, reason)
	return args.Error(0)
}

func (m *MockUserService) WarnUser(ctx context.Context, targetID primitive.ObjectID, moderator *models.User) (*models.User, error) {
	args := m.Called(ctx, targetID, moderator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) CreateListing(ctx context.Context, owner *models.User, in services.CreateListingInput) (*models.Listing, error) {
	args := m.Called(ctx, owner, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) PlaceBid(ctx context.Context, listingID primitive.ObjectID, bidder *models.User, amount float64) (*models.Listing, error) {
	args := m.Called(ctx, listingID, bidder, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) MarkSold(ctx context.Context, listingID primitive.ObjectID, actor *models.User, buyer *primitive.ObjectID) (*models.Listing, error) {
	args := m.Called(ctx, listingID, actor, buyer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) LockListing(ctx context.Context, listingID primitive.ObjectID, moderator *models.User) error {
	args := m.Called(ctx, listingID, moderator)
	return args.Error(0)
}

func (m *MockListingService) FlagReported(ctx context.Context, listingID primitive.ObjectID) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}

func (m *MockListingService) DeleteListing(ctx context.Context, listingID primitive.ObjectID, actor *models.User) error {
	args := m.Called(ctx, listingID, actor)
	return args.Error(0)
}

// MockCommentService
type MockCommentService struct {
	mock.Mock
}

func (m *MockCommentService) CreateComment(ctx context.Context, author *models.User, listingID primitive.ObjectID, parent *primitive.ObjectID, content string) (*models.Comment, error) {
	args := m.Called(ctx, author, listingID, parent, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockCommentService) ListComments(ctx context.Context, listingID primitive.ObjectID, limit int64) ([]models.Comment, error) {
	args := m.Called(ctx, listingID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Comment), args.Error(1)
}

func (m *MockCommentService) DeleteComment(ctx context.Context, commentID primitive.ObjectID, actor *models.User) error {
	args := m.Called(ctx, commentID, actor)
	return args.Error(0)
}

// MockCategoryService
type MockCategoryService struct {
	mock.Mock
}

func (m *MockCategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockCategoryService) FindCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryService) EnsureCategories(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
