package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rileyflames/marketplace/internal/apperr"
	"github.com/rileyflames/marketplace/internal/db"
	"github.com/rileyflames/marketplace/internal/models"
)

// ICategoryService defines the interface for category lookups and seeding.
type ICategoryService interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	FindCategoryByName(ctx context.Context, name string) (*models.Category, error)
	EnsureCategories(ctx context.Context) error
}

// categoryService implements ICategoryService.
type categoryService struct {
	db *mongo.Database
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(database *mongo.Database) ICategoryService {
	return &categoryService{db: database}
}

// ListCategories returns all active categories, alphabetically.
func (s *categoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	opts := findSortedAsc("name")
	cursor, err := s.db.Collection(categoriesCollection).Find(ctx, bson.M{"is_active": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	defer cursor.Close(ctx)

	categories := []models.Category{}
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("error decoding categories: %w", err)
	}
	return categories, nil
}

// FindCategoryByName resolves a category name to its document.
func (s *categoryService) FindCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	if !models.ValidCategoryName(name) {
		return nil, apperr.Validation("unknown category %q", name)
	}
	var category models.Category
	err := s.db.Collection(categoriesCollection).
		FindOne(ctx, bson.M{"name": name, "is_active": true}).Decode(&category)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("category %q not found", name)
		}
		return nil, fmt.Errorf("error finding category %q: %w", name, err)
	}
	return &category, nil
}

// EnsureCategories seeds the closed category set. Safe to run on every
// startup: existing documents are left untouched thanks to the unique name
// index.
func (s *categoryService) EnsureCategories(ctx context.Context) error {
	for _, name := range models.CategoryNames {
		category := models.Category{
			Name:      name,
			IsActive:  true,
			CreatedAt: time.Now().UTC(),
		}
		err := db.Try(func() error {
			_, insertErr := s.db.Collection(categoriesCollection).InsertOne(ctx, category)
			return insertErr
		})
		if err != nil && !db.IsDup(err) {
			return fmt.Errorf("failed to seed category %q: %w", name, err)
		}
	}
	log.Printf("Category set ensured (%d names)", len(models.CategoryNames))
	return nil
}
