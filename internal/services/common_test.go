package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rileyflames/marketplace/internal/config"
	"github.com/rileyflames/marketplace/internal/db"
	"github.com/rileyflames/marketplace/internal/models"
)

var testMongoURI string

func init() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
		godotenv.Load()
	}
	testMongoURI = os.Getenv("MONGO_URI_TEST")
}

func testConfig() *config.Config {
	return &config.Config{
		FreeListingQuota:    2,
		WarningBanThreshold: 3,
		ListingCacheTTL:     time.Minute,
	}
}

// setupServiceTest connects to the test MongoDB with a unique database name,
// ensures the production indexes exist so uniqueness behavior matches, and
// returns a cleanup that drops everything. Tests are skipped when
// MONGO_URI_TEST is not configured.
func setupServiceTest(t *testing.T) (*mongo.Database, *config.Config, *TrustGate, func()) {
	t.Helper()
	if testMongoURI == "" {
		t.Skip("MONGO_URI_TEST not set; skipping MongoDB integration test")
	}

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(testMongoURI))
	require.NoError(t, err, "Failed to connect to MongoDB")

	dbName := fmt.Sprintf("testdb_marketplace_%d", time.Now().UnixNano())
	database := client.Database(dbName)
	require.NoError(t, db.EnsureIndexes(context.Background(), database), "Failed to ensure indexes")

	cfg := testConfig()
	cleanup := func() {
		if err := database.Drop(context.Background()); err != nil {
			t.Logf("Failed to drop database %s: %v", dbName, err)
		}
		if err := client.Disconnect(context.Background()); err != nil {
			t.Logf("Failed to disconnect MongoDB client: %v", err)
		}
	}
	return database, cfg, NewTrustGate(cfg), cleanup
}

// insertTestUser writes a user directly and returns it.
func insertTestUser(t *testing.T, database *mongo.Database, username string, role models.Role) *models.User {
	t.Helper()
	now := time.Now().UTC()
	user := &models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Badges:       []string{},
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := database.Collection(usersCollection).InsertOne(context.Background(), user)
	require.NoError(t, err, "Failed to insert test user %s", username)
	return user
}

// insertTestCategory writes an active category directly and returns it.
func insertTestCategory(t *testing.T, database *mongo.Database, name string) *models.Category {
	t.Helper()
	category := &models.Category{
		ID:        primitive.NewObjectID(),
		Name:      name,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	_, err := database.Collection(categoriesCollection).InsertOne(context.Background(), category)
	require.NoError(t, err, "Failed to insert test category %s", name)
	return category
}

// fetchTestUser reloads a user document.
func fetchTestUser(t *testing.T, database *mongo.Database, id primitive.ObjectID) *models.User {
	t.Helper()
	var user models.User
	err := database.Collection(usersCollection).FindOne(context.Background(), bson.M{"_id": id}).Decode(&user)
	require.NoError(t, err, "Failed to fetch test user %s", id.Hex())
	return &user
}
