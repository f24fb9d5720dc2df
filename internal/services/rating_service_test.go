package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rileyflames/marketplace/internal/apperr"
	"github.com/rileyflames/marketplace/internal/models"
)

// insertListingDoc writes a minimal listing document for rating tests.
func insertListingDoc(t *testing.T, database *mongo.Database, owner primitive.ObjectID) *models.Listing {
	t.Helper()
	now := time.Now().UTC()
	listing := &models.Listing{
		ID:          primitive.NewObjectID(),
		Title:       "Old phone",
		Description: "Works fine",
		Flag:        models.FlagSale,
		PostedBy:    owner,
		Bids:        []models.Bid{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := database.Collection(listingsCollection).InsertOne(context.Background(), listing)
	require.NoError(t, err)
	return listing
}

func TestRatingService_SubmitRating_SnapshotTracksLedger(t *testing.T) {
	database, cfg, gate, cleanup := setupServiceTest(t)
	defer cleanup()
	svc := NewRatingService(database, cfg, gate, nil)
	seller := insertTestUser(t, database, "seller", models.RoleUser)
	alice := insertTestUser(t, database, "alice", models.RoleUser)
	bob := insertTestUser(t, database, "bob", models.RoleUser)
	listing := insertListingDoc(t, database, seller.ID)

	_, err := svc.SubmitRating(context.Background(), alice, SubmitRatingInput{
		To: seller.ID, Listing: listing.ID, Score: 5, Comment: "great seller",
	})
	require.NoError(t, err)

	updated := fetchTestUser(t, database, seller.ID)
	assert.Equal(t, float64(5), updated.Ratings.Average)
	assert.Equal(t, 1, updated.Ratings.Count)
	assert.Equal(t, 1, updated.Ratings.GoodCount)
	assert.Equal(t, 0, updated.Ratings.BadCount)

	_, err = svc.SubmitRating(context.Background(), bob, SubmitRatingInput{
		To: seller.ID, Listing: listing.ID, Score: 2,
	})
	require.NoError(t, err)

	updated = fetchTestUser(t, database, seller.ID)
	assert.InDelta(t, 3.5, updated.Ratings.Average, 1e-9)
	assert.Equal(t, 2, updated.Ratings.Count)
	assert.Equal(t, 1, updated.Ratings.GoodCount)
	assert.Equal(t, 1, updated.Ratings.BadCount)
}

func TestRatingService_SubmitRating_Duplicate(t *testing.T) {
	database, cfg, gate, cleanup := setupServiceTest(t)
	defer cleanup()
	svc := NewRatingService(database, cfg, gate, nil)
	seller := insertTestUser(t, database, "seller", models.RoleUser)
	rater := insertTestUser(t, database, "rater", models.RoleUser)
	listing := insertListingDoc(t, database, seller.ID)

	_, err := svc.SubmitRating(context.Background(), rater, SubmitRatingInput{
		To: seller.ID, Listing: listing.ID, Score: 4,
	})
	require.NoError(t, err)

	_, err = svc.SubmitRating(context.Background(), rater, SubmitRatingInput{
		To: seller.ID, Listing: listing.ID, Score: 1,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "duplicate rating should conflict, got %v", err)

	// The rejected duplicate must not have touched the snapshot.
	updated := fetchTestUser(t, database, seller.ID)
	assert.Equal(t, 1, updated.Ratings.Count)
}

func TestRatingService_SubmitRating_Validation(t *testing.T) {
	database, cfg, gate, cleanup := setupServiceTest(t)
	defer cleanup()
	svc := NewRatingService(database, cfg, gate, nil)
	seller := insertTestUser(t, database, "seller", models.RoleUser)
	rater := insertTestUser(t, database, "rater", models.RoleUser)
	listing := insertListingDoc(t, database, seller.ID)

	_, err := svc.SubmitRating(context.Background(), rater, SubmitRatingInput{
		To: rater.ID, Listing: listing.ID, Score: 5,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "self-rating: %v", err)

	for _, score := range []int{0, 6, -1} {
		_, err = svc.SubmitRating(context.Background(), rater, SubmitRatingInput{
			To: seller.ID, Listing: listing.ID, Score: score,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), "score %d: %v", score, err)
	}

	_, err = svc.SubmitRating(context.Background(), rater, SubmitRatingInput{
		To: seller.ID, Listing: primitive.NewObjectID(), Score: 3,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "unknown listing: %v", err)

	_, err = svc.SubmitRating(context.Background(), rater, SubmitRatingInput{
		To: primitive.NewObjectID(), Listing: listing.ID, Score: 3,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "unknown target: %v", err)
}

func TestRatingService_RebuildUserRatings(t *testing.T) {
	database, cfg, gate, cleanup := setupServiceTest(t)
	defer cleanup()
	svc := NewRatingService(database, cfg, gate, nil)
	seller := insertTestUser(t, database, "seller", models.RoleUser)
	listing := insertListingDoc(t, database, seller.ID)

	scores := []int{5, 4, 2, 1, 3}
	for i, score := range scores {
		rater := insertTestUser(t, database, "rater"+string(rune('a'+i)), models.RoleUser)
		_, err := svc.SubmitRating(context.Background(), rater, SubmitRatingInput{
			To: seller.ID, Listing: listing.ID, Score: score,
		})
		require.NoError(t, err)
	}

	// Corrupt the snapshot, then rebuild from the ledger.
	_, err := database.Collection(usersCollection).UpdateByID(context.Background(), seller.ID,
		bson.M{"$set": bson.M{"ratings": models.RatingsSummary{Average: 99, Count: 99}}})
	require.NoError(t, err)

	require.NoError(t, svc.RebuildUserRatings(context.Background(), seller.ID))
	rebuilt := fetchTestUser(t, database, seller.ID)
	assert.InDelta(t, 3.0, rebuilt.Ratings.Average, 1e-9)
	assert.Equal(t, 5, rebuilt.Ratings.Count)
	assert.Equal(t, 2, rebuilt.Ratings.GoodCount)
	assert.Equal(t, 2, rebuilt.Ratings.BadCount)

	// Idempotent: a second rebuild converges to the same summary.
	require.NoError(t, svc.RebuildUserRatings(context.Background(), seller.ID))
	again := fetchTestUser(t, database, seller.ID)
	assert.Equal(t, rebuilt.Ratings, again.Ratings)

	// Unknown user.
	err = svc.RebuildUserRatings(context.Background(), primitive.NewObjectID())
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRatingService_ListRatingsFor(t *testing.T) {
	database, cfg, gate, cleanup := setupServiceTest(t)
	defer cleanup()
	svc := NewRatingService(database, cfg, gate, nil)
	seller := insertTestUser(t, database, "seller", models.RoleUser)
	rater := insertTestUser(t, database, "rater", models.RoleUser)
	listing := insertListingDoc(t, database, seller.ID)

	_, err := svc.SubmitRating(context.Background(), rater, SubmitRatingInput{
		To: seller.ID, Listing: listing.ID, Score: 4, Comment: "smooth deal",
	})
	require.NoError(t, err)

	ratings, err := svc.ListRatingsFor(context.Background(), seller.ID, 10)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, rater.ID, ratings[0].From)
	assert.Equal(t, "smooth deal", ratings[0].Comment)

	none, err := svc.ListRatingsFor(context.Background(), rater.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
