package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rileyflames/marketplace/internal/apperr"
	"github.com/rileyflames/marketplace/internal/config"
	"github.com/rileyflames/marketplace/internal/db"
	"github.com/rileyflames/marketplace/internal/models"
)

// SubmitRatingInput carries the caller-supplied fields for a new rating.
type SubmitRatingInput struct {
	To      primitive.ObjectID
	Listing primitive.ObjectID
	Score   int
	Comment string
}

// IRatingService defines the interface for reputation operations.
type IRatingService interface {
	SubmitRating(ctx context.Context, rater *models.User, in SubmitRatingInput) (*models.Rating, error)
	ListRatingsFor(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Rating, error)
	RebuildUserRatings(ctx context.Context, userID primitive.ObjectID) error
}

const ratingsCollection = "ratings"

// ratingService implements IRatingService.
type ratingService struct {
	db     *mongo.Database
	cfg    *config.Config
	gate   *TrustGate
	repair RatingRepairEnqueuer
}

// RatingRepairEnqueuer schedules an asynchronous rebuild of a user's rating
// snapshot. Nil disables repair scheduling.
type RatingRepairEnqueuer interface {
	EnqueueRatingsRebuild(userID primitive.ObjectID) error
}

// NewRatingService creates a new RatingService. repair may be nil.
func NewRatingService(database *mongo.Database, cfg *config.Config, gate *TrustGate, repair RatingRepairEnqueuer) IRatingService {
	return &ratingService{db: database, cfg: cfg, gate: gate, repair: repair}
}

// SubmitRating records a rating and folds it into the target user's
// denormalized snapshot. The per-(from,to,listing) unique index makes the
// insert the arbiter for duplicates, so at most one rating per rater per
// listing ever lands.
func (s *ratingService) SubmitRating(ctx context.Context, rater *models.User, in SubmitRatingInput) (*models.Rating, error) {
	if err := s.gate.Allow(rater, false); err != nil {
		return nil, err
	}
	if in.To == rater.ID {
		return nil, apperr.Validation("users cannot rate themselves")
	}
	if in.Score < models.MinScore || in.Score > models.MaxScore {
		return nil, apperr.Validation("score must be an integer between %d and %d", models.MinScore, models.MaxScore)
	}

	// Both sides of the rating must exist.
	count, err := s.db.Collection(listingsCollection).CountDocuments(ctx, bson.M{"_id": in.Listing, "deleted": false})
	if err != nil {
		return nil, fmt.Errorf("error checking listing %s: %w", in.Listing.Hex(), err)
	}
	if count == 0 {
		return nil, apperr.NotFound("listing %s not found", in.Listing.Hex())
	}
	count, err = s.db.Collection(usersCollection).CountDocuments(ctx, bson.M{"_id": in.To})
	if err != nil {
		return nil, fmt.Errorf("error checking user %s: %w", in.To.Hex(), err)
	}
	if count == 0 {
		return nil, apperr.NotFound("user %s not found", in.To.Hex())
	}

	rating := &models.Rating{
		ID:        primitive.NewObjectID(),
		From:      rater.ID,
		To:        in.To,
		Listing:   in.Listing,
		Score:     in.Score,
		Comment:   in.Comment,
		CreatedAt: time.Now().UTC(),
	}

	err = db.Try(func() error {
		_, insertErr := s.db.Collection(ratingsCollection).InsertOne(ctx, rating)
		return insertErr
	})
	if err != nil {
		if db.IsDup(err) {
			return nil, apperr.Conflict("user %s has already rated this listing", rater.ID.Hex())
		}
		return nil, fmt.Errorf("failed to insert rating from %s: %w", rater.ID.Hex(), err)
	}

	if err := s.applyToSnapshot(ctx, in.To, in.Score); err != nil {
		// The rating record is the source of truth; the snapshot can be
		// repaired offline.
		log.Printf("CRITICAL: failed to update rating snapshot for user %s: %v", in.To.Hex(), err)
		if s.repair != nil {
			if enqErr := s.repair.EnqueueRatingsRebuild(in.To); enqErr != nil {
				log.Printf("CRITICAL: failed to enqueue rating rebuild for user %s: %v", in.To.Hex(), enqErr)
			}
		}
	}

	return rating, nil
}

// applyToSnapshot folds one new score into the target's summary with an
// aggregation-pipeline update, so the running mean and the counters move in
// a single document write.
func (s *ratingService) applyToSnapshot(ctx context.Context, userID primitive.ObjectID, score int) error {
	goodInc, badInc := 0, 0
	if score >= models.GoodScore {
		goodInc = 1
	}
	if score <= models.BadScore {
		badInc = 1
	}

	update := bson.A{
		bson.M{"$set": bson.M{
			"ratings.average": bson.M{"$divide": bson.A{
				bson.M{"$add": bson.A{
					bson.M{"$multiply": bson.A{"$ratings.average", "$ratings.count"}},
					score,
				}},
				bson.M{"$add": bson.A{"$ratings.count", 1}},
			}},
			"ratings.count":      bson.M{"$add": bson.A{"$ratings.count", 1}},
			"ratings.good_count": bson.M{"$add": bson.A{"$ratings.good_count", goodInc}},
			"ratings.bad_count":  bson.M{"$add": bson.A{"$ratings.bad_count", badInc}},
			"updated_at":         "$$NOW",
		}},
	}

	result, err := s.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("db error updating rating snapshot: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user %s disappeared during snapshot update", userID.Hex())
	}
	return nil
}

// ListRatingsFor returns the most recent ratings received by a user.
func (s *ratingService) ListRatingsFor(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Rating, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	opts := findSortedDesc("created_at").SetLimit(limit)
	cursor, err := s.db.Collection(ratingsCollection).Find(ctx, bson.M{"to": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing ratings for user %s: %w", userID.Hex(), err)
	}
	defer cursor.Close(ctx)

	ratings := []models.Rating{}
	if err := cursor.All(ctx, &ratings); err != nil {
		return nil, fmt.Errorf("error decoding ratings for user %s: %w", userID.Hex(), err)
	}
	return ratings, nil
}

// RebuildUserRatings recomputes a user's snapshot from the ratings
// collection. Idempotent: running it twice converges to the same summary,
// which makes it safe as a retried background task.
func (s *ratingService) RebuildUserRatings(ctx context.Context, userID primitive.ObjectID) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"to": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"average": bson.M{"$avg": "$score"},
			"count":   bson.M{"$sum": 1},
			"good_count": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$gte": bson.A{"$score", models.GoodScore}}, 1, 0},
			}},
			"bad_count": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$lte": bson.A{"$score", models.BadScore}}, 1, 0},
			}},
		}}},
	}

	cursor, err := s.db.Collection(ratingsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("error aggregating ratings for user %s: %w", userID.Hex(), err)
	}
	defer cursor.Close(ctx)

	summary := models.RatingsSummary{}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&summary); err != nil {
			return fmt.Errorf("error decoding rating aggregate for user %s: %w", userID.Hex(), err)
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("cursor error aggregating ratings for user %s: %w", userID.Hex(), err)
	}

	update := bson.M{"$set": bson.M{"ratings": summary, "updated_at": time.Now().UTC()}}
	result, err := s.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("db error writing rebuilt snapshot for user %s: %w", userID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("user %s not found", userID.Hex())
	}

	log.Printf("Rebuilt rating snapshot for user %s: avg=%.2f count=%d", userID.Hex(), summary.Average, summary.Count)
	return nil
}
