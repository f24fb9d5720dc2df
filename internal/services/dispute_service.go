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

// OpenDisputeInput carries the caller-supplied fields for a new dispute.
// Disputes are public unless the opener explicitly requests privacy.
type OpenDisputeInput struct {
	Listing primitive.ObjectID
	Against primitive.ObjectID
	Message string
	Private bool
}

// IDisputeService defines the interface for dispute operations.
type IDisputeService interface {
	OpenDispute(ctx context.Context, opener *models.User, in OpenDisputeInput) (*models.Dispute, error)
	FindDisputeByID(ctx context.Context, disputeID primitive.ObjectID, viewer *models.User) (*models.Dispute, error)
	AddMessage(ctx context.Context, disputeID primitive.ObjectID, sender *models.User, text string) (*models.Dispute, error)
	AssignModerator(ctx context.Context, disputeID primitive.ObjectID, moderator *models.User) (*models.Dispute, error)
	Resolve(ctx context.Context, disputeID primitive.ObjectID, moderator *models.User, summary string) (*models.Dispute, error)
	Close(ctx context.Context, disputeID primitive.ObjectID, moderator *models.User) (*models.Dispute, error)
}

// disputeService implements IDisputeService.
type disputeService struct {
	db   *mongo.Database
	cfg  *config.Config
	gate *TrustGate
}

// NewDisputeService creates a new DisputeService.
func NewDisputeService(database *mongo.Database, cfg *config.Config, gate *TrustGate) IDisputeService {
	return &disputeService{db: database, cfg: cfg, gate: gate}
}

// OpenDispute creates a dispute thread between the opener and another party
// over a listing, seeded with the opener's first message. The partial unique
// index on (listing, opened_by, against) with status "open" makes a second
// concurrent open a duplicate-key error, so the same pair can never hold two
// open disputes over one listing.
func (s *disputeService) OpenDispute(ctx context.Context, opener *models.User, in OpenDisputeInput) (*models.Dispute, error) {
	if err := s.gate.Allow(opener, false); err != nil {
		return nil, err
	}
	if in.Against == opener.ID {
		return nil, apperr.Validation("users cannot open a dispute against themselves")
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, apperr.Validation("an opening message is required")
	}

	count, err := s.db.Collection(listingsCollection).CountDocuments(ctx, bson.M{"_id": in.Listing, "deleted": false})
	if err != nil {
		return nil, fmt.Errorf("error checking listing %s: %w", in.Listing.Hex(), err)
	}
	if count == 0 {
		return nil, apperr.NotFound("listing %s not found", in.Listing.Hex())
	}
	count, err = s.db.Collection(usersCollection).CountDocuments(ctx, bson.M{"_id": in.Against})
	if err != nil {
		return nil, fmt.Errorf("error checking user %s: %w", in.Against.Hex(), err)
	}
	if count == 0 {
		return nil, apperr.NotFound("user %s not found", in.Against.Hex())
	}

	now := time.Now().UTC()
	dispute := &models.Dispute{
		ID:       primitive.NewObjectID(),
		Listing:  in.Listing,
		OpenedBy: opener.ID,
		Against:  in.Against,
		Messages: []models.DisputeMessage{
			{Sender: opener.ID, Text: strings.TrimSpace(in.Message), Timestamp: now},
		},
		Status:    models.DisputeOpen,
		Public:    !in.Private,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = db.Try(func() error {
		_, insertErr := s.db.Collection(disputesCollection).InsertOne(ctx, dispute)
		return insertErr
	})
	if err != nil {
		if db.IsDup(err) {
			return nil, apperr.Conflict("an open dispute between these users over listing %s already exists", in.Listing.Hex())
		}
		return nil, fmt.Errorf("failed to insert dispute for listing %s: %w", in.Listing.Hex(), err)
	}

	s.setActiveDisputeFlag(ctx, opener.ID, in.Against)
	return dispute, nil
}

// FindDisputeByID returns a dispute. Private disputes are visible only to
// the participants and moderators.
func (s *disputeService) FindDisputeByID(ctx context.Context, disputeID primitive.ObjectID, viewer *models.User) (*models.Dispute, error) {
	dispute, err := s.findRaw(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !dispute.Public && !dispute.IsParticipant(viewer.ID) && !viewer.Role.IsModerator() {
		return nil, apperr.Forbidden("dispute %s is private", disputeID.Hex())
	}
	return dispute, nil
}

// AddMessage appends to the dispute thread. Only the two participants and
// the assigned moderator may write, and only while the dispute is open.
// Participants go through the trust gate; the assigned moderator writes with
// the moderator override, so warnings do not silence them (a ban still does).
func (s *disputeService) AddMessage(ctx context.Context, disputeID primitive.ObjectID, sender *models.User, text string) (*models.Dispute, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("message text is required")
	}

	dispute, err := s.findRaw(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status.Terminal() {
		return nil, apperr.Conflict("dispute %s is %s and no longer accepts messages", disputeID.Hex(), dispute.Status)
	}
	isAssignedModerator := dispute.Moderator != nil && *dispute.Moderator == sender.ID
	if !dispute.IsParticipant(sender.ID) && !isAssignedModerator {
		return nil, apperr.Forbidden("user %s is not a party to dispute %s", sender.Username, disputeID.Hex())
	}
	if err := s.gate.Allow(sender, isAssignedModerator); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	message := models.DisputeMessage{Sender: sender.ID, Text: strings.TrimSpace(text), Timestamp: now}
	filter := bson.M{"_id": disputeID, "status": models.DisputeOpen}
	update := bson.M{
		"$push": bson.M{"messages": message},
		"$set":  bson.M{"updated_at": now},
	}

	var updated models.Dispute
	err = s.db.Collection(disputesCollection).
		FindOneAndUpdate(ctx, filter, update, findOneAndUpdateReturnAfter()).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Closed between the read above and the write.
			return nil, apperr.Conflict("dispute %s is no longer open", disputeID.Hex())
		}
		return nil, fmt.Errorf("db error adding message to dispute %s: %w", disputeID.Hex(), err)
	}
	return &updated, nil
}

// AssignModerator claims an unassigned open dispute for a moderator. The
// conditional update keyed on the moderator field being absent makes the
// claim first-wins.
func (s *disputeService) AssignModerator(ctx context.Context, disputeID primitive.ObjectID, moderator *models.User) (*models.Dispute, error) {
	if !moderator.Role.IsModerator() {
		return nil, apperr.Forbidden("user %s is not a moderator", moderator.Username)
	}

	filter := bson.M{
		"_id":       disputeID,
		"status":    models.DisputeOpen,
		"moderator": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"moderator": moderator.ID, "updated_at": time.Now().UTC()}}

	var updated models.Dispute
	err := s.db.Collection(disputesCollection).
		FindOneAndUpdate(ctx, filter, update, findOneAndUpdateReturnAfter()).Decode(&updated)
	if err == nil {
		log.Printf("Dispute %s assigned to moderator %s", disputeID.Hex(), moderator.Username)
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("db error assigning moderator to dispute %s: %w", disputeID.Hex(), err)
	}

	dispute, checkErr := s.findRaw(ctx, disputeID)
	if checkErr != nil {
		return nil, checkErr
	}
	if dispute.Status.Terminal() {
		return nil, apperr.Conflict("dispute %s is %s", disputeID.Hex(), dispute.Status)
	}
	return nil, apperr.Conflict("dispute %s already has a moderator assigned", disputeID.Hex())
}

// Resolve records a resolution on an open dispute. A moderator must already
// be assigned, the summary is mandatory, and the conditional update keyed on
// the open status makes resolution happen exactly once.
func (s *disputeService) Resolve(ctx context.Context, disputeID primitive.ObjectID, moderator *models.User, summary string) (*models.Dispute, error) {
	if !moderator.Role.IsModerator() {
		return nil, apperr.Forbidden("user %s is not a moderator", moderator.Username)
	}
	if strings.TrimSpace(summary) == "" {
		return nil, apperr.Validation("a resolution summary is required")
	}
	return s.finish(ctx, disputeID, models.DisputeResolved, &models.Resolution{
		Summary:    strings.TrimSpace(summary),
		ResolvedAt: time.Now().UTC(),
	})
}

// Close ends an open dispute without a resolution, for abandoned or
// withdrawn cases.
func (s *disputeService) Close(ctx context.Context, disputeID primitive.ObjectID, moderator *models.User) (*models.Dispute, error) {
	if !moderator.Role.IsModerator() {
		return nil, apperr.Forbidden("user %s is not a moderator", moderator.Username)
	}
	return s.finish(ctx, disputeID, models.DisputeClosed, nil)
}

// finish moves an open dispute to a terminal status and clears the active
// dispute flags afterwards.
func (s *disputeService) finish(ctx context.Context, disputeID primitive.ObjectID, status models.DisputeStatus, resolution *models.Resolution) (*models.Dispute, error) {
	now := time.Now().UTC()
	filter := bson.M{"_id": disputeID, "status": models.DisputeOpen}
	if status == models.DisputeResolved {
		// Resolution requires a claimed dispute.
		filter["moderator"] = bson.M{"$exists": true}
	}
	set := bson.M{"status": status, "updated_at": now}
	if resolution != nil {
		set["resolution"] = resolution
	}

	var updated models.Dispute
	err := s.db.Collection(disputesCollection).
		FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, findOneAndUpdateReturnAfter()).Decode(&updated)
	if err == nil {
		s.clearActiveDisputeFlag(ctx, updated.OpenedBy)
		s.clearActiveDisputeFlag(ctx, updated.Against)
		log.Printf("Dispute %s %s", disputeID.Hex(), status)
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("db error finishing dispute %s: %w", disputeID.Hex(), err)
	}

	dispute, checkErr := s.findRaw(ctx, disputeID)
	if checkErr != nil {
		return nil, checkErr
	}
	if dispute.Status.Terminal() {
		return nil, apperr.Conflict("dispute %s is already %s", disputeID.Hex(), dispute.Status)
	}
	return nil, apperr.Precondition("dispute %s has no moderator assigned", disputeID.Hex())
}

func (s *disputeService) findRaw(ctx context.Context, disputeID primitive.ObjectID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := s.db.Collection(disputesCollection).FindOne(ctx, bson.M{"_id": disputeID}).Decode(&dispute)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("dispute %s not found", disputeID.Hex())
		}
		return nil, fmt.Errorf("error finding dispute %s: %w", disputeID.Hex(), err)
	}
	return &dispute, nil
}

// setActiveDisputeFlag marks both parties as having an active dispute.
func (s *disputeService) setActiveDisputeFlag(ctx context.Context, parties ...primitive.ObjectID) {
	update := bson.M{"$set": bson.M{"has_active_dispute": true, "updated_at": time.Now().UTC()}}
	if _, err := s.db.Collection(usersCollection).UpdateMany(ctx, bson.M{"_id": bson.M{"$in": parties}}, update); err != nil {
		log.Printf("Failed to set active dispute flag for %v: %v", parties, err)
	}
}

// clearActiveDisputeFlag clears a party's flag only when they hold no other
// open dispute, as opener or respondent.
func (s *disputeService) clearActiveDisputeFlag(ctx context.Context, userID primitive.ObjectID) {
	count, err := s.db.Collection(disputesCollection).CountDocuments(ctx, bson.M{
		"status": models.DisputeOpen,
		"$or": bson.A{
			bson.M{"opened_by": userID},
			bson.M{"against": userID},
		},
	})
	if err != nil {
		log.Printf("Failed to count open disputes for user %s: %v", userID.Hex(), err)
		return
	}
	if count > 0 {
		return
	}
	update := bson.M{"$set": bson.M{"has_active_dispute": false, "updated_at": time.Now().UTC()}}
	if _, err := s.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"_id": userID}, update); err != nil {
		log.Printf("Failed to clear active dispute flag for user %s: %v", userID.Hex(), err)
	}
}
