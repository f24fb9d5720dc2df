package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the domain invariants rely on. It is
// idempotent and safe to run on every startup.
//
// The unique indexes are load-bearing: username/email uniqueness, the
// one-rating-per-(from,to,listing) rule and the single-open-dispute-
// per-(listing,openedBy,against) rule are all enforced here rather than by
// read-then-write checks in the services.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	type spec struct {
		collection string
		models     []mongo.IndexModel
	}

	specs := []spec{
		{
			collection: "users",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "username", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
				{
					Keys:    bson.D{{Key: "email", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
			},
		},
		{
			collection: "ratings",
			models: []mongo.IndexModel{
				{
					Keys: bson.D{
						{Key: "from", Value: 1},
						{Key: "to", Value: 1},
						{Key: "listing", Value: 1},
					},
					Options: options.Index().SetUnique(true),
				},
				{Keys: bson.D{{Key: "to", Value: 1}}},
			},
		},
		{
			collection: "disputes",
			models: []mongo.IndexModel{
				{
					// Only one open thread per exact (listing, openedBy, against)
					// triple; resolved/closed threads do not collide.
					Keys: bson.D{
						{Key: "listing", Value: 1},
						{Key: "opened_by", Value: 1},
						{Key: "against", Value: 1},
					},
					Options: options.Index().
						SetUnique(true).
						SetPartialFilterExpression(bson.M{"status": "open"}),
				},
				{Keys: bson.D{{Key: "opened_by", Value: 1}, {Key: "status", Value: 1}}},
				{Keys: bson.D{{Key: "against", Value: 1}, {Key: "status", Value: 1}}},
			},
		},
		{
			collection: "conversations",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "participants", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
			},
		},
		{
			collection: "listings",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "posted_by", Value: 1}}},
			},
		},
		{
			collection: "reports",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "status", Value: 1}}},
				{Keys: bson.D{{Key: "target_type", Value: 1}, {Key: "target_id", Value: 1}}},
			},
		},
		{
			collection: "categories",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "name", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
			},
		},
		{
			collection: "comments",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "listing", Value: 1}}},
			},
		},
	}

	for _, s := range specs {
		if _, err := database.Collection(s.collection).Indexes().CreateMany(ctx, s.models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", s.collection, err)
		}
	}
	return nil
}
