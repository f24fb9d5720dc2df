package services

import (
	"context"
	"errors"
	"fmt"
	"log"
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

// FileReportInput carries the caller-supplied fields for a new report.
type FileReportInput struct {
	TargetType     models.ReportTargetType
	TargetID       primitive.ObjectID
	Reason         string
	AdditionalInfo string
}

// PendingByTarget is one row of the pending-report digest.
type PendingByTarget struct {
	TargetType models.ReportTargetType `bson:"target_type"`
	TargetID   primitive.ObjectID      `bson:"target_id"`
	Count      int                     `bson:"count"`
}

// IReportService defines the interface for moderation report operations.
type IReportService interface {
	FileReport(ctx context.Context, reporter *models.User, in FileReportInput) (*models.Report, error)
	ReviewReport(ctx context.Context, reportID primitive.ObjectID, moderator *models.User, outcome models.ReportStatus) (*models.Report, error)
	ListPending(ctx context.Context, limit int64) ([]models.Report, error)
	CountPendingByTarget(ctx context.Context) ([]PendingByTarget, error)
}

const (
	reportsCollection  = "reports"
	commentsCollection = "comments"
)

// reportService implements IReportService.
type reportService struct {
	db       *mongo.Database
	cfg      *config.Config
	gate     *TrustGate
	listings IListingService
}

// NewReportService creates a new ReportService. The listing service is used
// to flag reported listings.
func NewReportService(database *mongo.Database, cfg *config.Config, gate *TrustGate, listings IListingService) IReportService {
	return &reportService{db: database, cfg: cfg, gate: gate, listings: listings}
}

// FileReport records a report against a listing or comment. Reports are
// never deduplicated: repeated reports against the same target each create
// a record, and the target listing carries a sticky reported flag.
func (s *reportService) FileReport(ctx context.Context, reporter *models.User, in FileReportInput) (*models.Report, error) {
	if err := s.gate.Allow(reporter, false); err != nil {
		return nil, err
	}
	if !in.TargetType.Valid() {
		return nil, apperr.Validation("target type must be %q or %q", models.TargetListing, models.TargetComment)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperr.Validation("reason is required")
	}

	if err := s.checkTargetExists(ctx, in.TargetType, in.TargetID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	report := &models.Report{
		ID:             primitive.NewObjectID(),
		Reporter:       reporter.ID,
		TargetType:     in.TargetType,
		TargetID:       in.TargetID,
		Reason:         strings.TrimSpace(in.Reason),
		AdditionalInfo: in.AdditionalInfo,
		Status:         models.ReportPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := db.Try(func() error {
		_, insertErr := s.db.Collection(reportsCollection).InsertOne(ctx, report)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert report from %s: %w", reporter.ID.Hex(), err)
	}

	if in.TargetType == models.TargetListing {
		if flagErr := s.listings.FlagReported(ctx, in.TargetID); flagErr != nil {
			// The report is already on file; the sticky flag is best-effort.
			log.Printf("Failed to flag listing %s as reported: %v", in.TargetID.Hex(), flagErr)
		}
	}

	return report, nil
}

func (s *reportService) checkTargetExists(ctx context.Context, targetType models.ReportTargetType, targetID primitive.ObjectID) error {
	var (
		collection string
		filter     bson.M
	)
	switch targetType {
	case models.TargetListing:
		collection = listingsCollection
		filter = bson.M{"_id": targetID, "deleted": false}
	case models.TargetComment:
		collection = commentsCollection
		filter = bson.M{"_id": targetID, "is_deleted": false}
	}

	count, err := s.db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		return fmt.Errorf("error checking report target %s %s: %w", targetType, targetID.Hex(), err)
	}
	if count == 0 {
		return apperr.NotFound("%s %s not found", targetType, targetID.Hex())
	}
	return nil
}

// ReviewReport moves a pending report to reviewed or dismissed. Both
// outcomes are terminal; the conditional update keyed on the pending status
// guarantees exactly one moderator's verdict lands.
func (s *reportService) ReviewReport(ctx context.Context, reportID primitive.ObjectID, moderator *models.User, outcome models.ReportStatus) (*models.Report, error) {
	if !moderator.Role.IsModerator() {
		return nil, apperr.Forbidden("user %s is not a moderator", moderator.Username)
	}
	if !models.ReportPending.CanTransition(outcome) {
		return nil, apperr.Validation("outcome must be %q or %q", models.ReportReviewed, models.ReportDismissed)
	}

	now := time.Now().UTC()
	filter := bson.M{"_id": reportID, "status": models.ReportPending}
	update := bson.M{"$set": bson.M{
		"status":      outcome,
		"reviewed_by": moderator.ID,
		"reviewed_at": now,
		"updated_at":  now,
	}}

	var report models.Report
	err := s.db.Collection(reportsCollection).
		FindOneAndUpdate(ctx, filter, update, findOneAndUpdateReturnAfter()).Decode(&report)
	if err == nil {
		log.Printf("Report %s %s by moderator %s", reportID.Hex(), outcome, moderator.Username)
		return &report, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("db error reviewing report %s: %w", reportID.Hex(), err)
	}

	// Either the report does not exist or someone else got there first.
	count, checkErr := s.db.Collection(reportsCollection).CountDocuments(ctx, bson.M{"_id": reportID})
	if checkErr != nil {
		return nil, fmt.Errorf("error checking report %s after failed review: %w", reportID.Hex(), checkErr)
	}
	if count == 0 {
		return nil, apperr.NotFound("report %s not found", reportID.Hex())
	}
	return nil, apperr.Conflict("report %s has already been reviewed", reportID.Hex())
}

// ListPending returns the oldest pending reports first, so the moderation
// queue drains in filing order.
func (s *reportService) ListPending(ctx context.Context, limit int64) ([]models.Report, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	opts := findSortedAsc("created_at").SetLimit(limit)
	cursor, err := s.db.Collection(reportsCollection).Find(ctx, bson.M{"status": models.ReportPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing pending reports: %w", err)
	}
	defer cursor.Close(ctx)

	reports := []models.Report{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("error decoding pending reports: %w", err)
	}
	return reports, nil
}

// CountPendingByTarget groups pending reports per target for the periodic
// moderation digest.
func (s *reportService) CountPendingByTarget(ctx context.Context) ([]PendingByTarget, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.ReportPending}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"target_type": "$target_type", "target_id": "$target_id"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":         0,
			"target_type": "$_id.target_type",
			"target_id":   "$_id.target_id",
			"count":       1,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}

	cursor, err := s.db.Collection(reportsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error aggregating pending reports: %w", err)
	}
	defer cursor.Close(ctx)

	rows := []PendingByTarget{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("error decoding pending report counts: %w", err)
	}
	return rows, nil
}
