package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rileyflames/marketplace/internal/apperr"
	"github.com/rileyflames/marketplace/internal/config"
	"github.com/rileyflames/marketplace/internal/db"
	"github.com/rileyflames/marketplace/internal/models"
)

// CreateListingInput carries the caller-supplied fields for a new listing.
type CreateListingInput struct {
	Title       string
	Description string
	Price       *float64
	Flag        models.ListingFlag
	Category    primitive.ObjectID
	Images      []string
	Location    *models.Location
	IsBiddable  bool
}

// IListingService defines the interface for listing lifecycle operations.
type IListingService interface {
	CreateListing(ctx context.Context, owner *models.User, in CreateListingInput) (*models.Listing, error)
	FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error)
	PlaceBid(ctx context.Context, listingID primitive.ObjectID, bidder *models.User, amount float64) (*models.Listing, error)
	MarkSold(ctx context.Context, listingID primitive.ObjectID, actor *models.User, buyer *primitive.ObjectID) (*models.Listing, error)
	LockListing(ctx context.Context, listingID primitive.ObjectID, moderator *models.User) error
	FlagReported(ctx context.Context, listingID primitive.ObjectID) error
	DeleteListing(ctx context.Context, listingID primitive.ObjectID, actor *models.User) error
}

const (
	listingsCollection   = "listings"
	disputesCollection   = "disputes"
	categoriesCollection = "categories"
)

// listingService implements IListingService.
type listingService struct {
	db   *mongo.Database
	cfg  *config.Config
	gate *TrustGate
	rdb  *redis.Client // optional read cache; nil disables caching
}

// NewListingService creates a new ListingService. rdb may be nil.
func NewListingService(database *mongo.Database, cfg *config.Config, gate *TrustGate, rdb *redis.Client) IListingService {
	return &listingService{db: database, cfg: cfg, gate: gate, rdb: rdb}
}

// CreateListing validates the input, consumes a quota slot on the owner and
// persists the listing. A free slot is granted only while the owner's free
// count is below the quota; otherwise the paid counter is incremented. The
// owner's total always tracks free + paid.
func (s *listingService) CreateListing(ctx context.Context, owner *models.User, in CreateListingInput) (*models.Listing, error) {
	if err := s.gate.Allow(owner, false); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" || len(title) > 100 {
		return nil, apperr.Validation("title is required and cannot exceed 100 characters")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, apperr.Validation("description is required")
	}
	if !in.Flag.Valid() {
		return nil, apperr.Validation("flag must be one of sale, wanted, help")
	}
	if in.IsBiddable && in.Flag != models.FlagSale {
		return nil, apperr.Validation("only listings with the flag %q can be biddable", models.FlagSale)
	}
	if in.Flag == models.FlagSale && in.Price == nil {
		return nil, apperr.Validation("price is required for sale listings")
	}
	if in.Price != nil && *in.Price < 0 {
		return nil, apperr.Validation("price cannot be negative")
	}

	var category models.Category
	err := s.db.Collection(categoriesCollection).
		FindOne(ctx, bson.M{"_id": in.Category, "is_active": true}).Decode(&category)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("category %s not found", in.Category.Hex())
		}
		return nil, fmt.Errorf("error checking category %s: %w", in.Category.Hex(), err)
	}

	if err := s.grantQuotaSlot(ctx, owner.ID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	newListing := &models.Listing{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Flag:        in.Flag,
		Category:    in.Category,
		Images:      in.Images,
		Location:    in.Location,
		PostedBy:    owner.ID,
		IsBiddable:  in.IsBiddable,
		Bids:        []models.Bid{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if newListing.Images == nil {
		newListing.Images = []string{}
	}

	err = db.Try(func() error {
		_, insertErr := s.db.Collection(listingsCollection).InsertOne(ctx, newListing)
		return insertErr
	})
	if err != nil {
		// Give the slot back so the quota invariant survives the failure.
		s.releaseQuotaSlot(ctx, owner.ID)
		return nil, fmt.Errorf("failed to insert listing for user %s: %w", owner.ID.Hex(), err)
	}

	return newListing, nil
}

// grantQuotaSlot consumes one listing slot on the user, preferring a free
// slot. The free path is a conditional update so concurrent creates cannot
// push the free counter past the quota.
func (s *listingService) grantQuotaSlot(ctx context.Context, userID primitive.ObjectID) error {
	users := s.db.Collection(usersCollection)
	now := time.Now().UTC()

	freeFilter := bson.M{
		"_id":                 userID,
		"listings_count.free": bson.M{"$lt": s.cfg.FreeListingQuota},
	}
	freeUpdate := bson.M{
		"$inc": bson.M{"listings_count.free": 1, "listings_count.total": 1},
		"$set": bson.M{"updated_at": now},
	}
	result, err := users.UpdateOne(ctx, freeFilter, freeUpdate)
	if err != nil {
		return fmt.Errorf("db error granting free listing slot for user %s: %w", userID.Hex(), err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// Free quota exhausted: charge a paid slot instead.
	paidUpdate := bson.M{
		"$inc": bson.M{"listings_count.paid": 1, "listings_count.total": 1},
		"$set": bson.M{"updated_at": now},
	}
	result, err = users.UpdateOne(ctx, bson.M{"_id": userID}, paidUpdate)
	if err != nil {
		return fmt.Errorf("db error granting paid listing slot for user %s: %w", userID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("user %s not found", userID.Hex())
	}
	return nil
}

// releaseQuotaSlot undoes grantQuotaSlot after a failed listing insert.
func (s *listingService) releaseQuotaSlot(ctx context.Context, userID primitive.ObjectID) {
	users := s.db.Collection(usersCollection)

	// Try to release a free slot first (mirror of the grant order); fall
	// back to the paid counter.
	freeFilter := bson.M{"_id": userID, "listings_count.free": bson.M{"$gt": 0}}
	freeUpdate := bson.M{"$inc": bson.M{"listings_count.free": -1, "listings_count.total": -1}}
	result, err := users.UpdateOne(ctx, freeFilter, freeUpdate)
	if err == nil && result.MatchedCount > 0 {
		return
	}
	paidUpdate := bson.M{"$inc": bson.M{"listings_count.paid": -1, "listings_count.total": -1}}
	if _, err := users.UpdateOne(ctx, bson.M{"_id": userID}, paidUpdate); err != nil {
		log.Printf("CRITICAL: failed to release listing quota slot for user %s: %v", userID.Hex(), err)
	}
}

// FindListingByID returns a non-deleted listing, using the Redis read cache
// when available.
func (s *listingService) FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	if cached := s.cacheGet(ctx, listingID); cached != nil {
		return cached, nil
	}

	var listing models.Listing
	filter := bson.M{"_id": listingID, "deleted": false}
	err := s.db.Collection(listingsCollection).FindOne(ctx, filter).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("listing %s not found", listingID.Hex())
		}
		return nil, fmt.Errorf("error finding listing by ID %s: %w", listingID.Hex(), err)
	}

	s.cacheSet(ctx, &listing)
	return &listing, nil
}

// PlaceBid appends a bid and updates the denormalized highest-bid fields in
// one conditional update, so the ledger and the projection can never
// disagree and concurrent bidders cannot both win. Ties lose: the filter
// requires strictly greater amounts, keeping the earliest bid as the
// standing highest.
func (s *listingService) PlaceBid(ctx context.Context, listingID primitive.ObjectID, bidder *models.User, amount float64) (*models.Listing, error) {
	if err := s.gate.Allow(bidder, false); err != nil {
		return nil, err
	}
	if amount < 1 {
		return nil, apperr.Validation("bid amount must be at least 1")
	}

	now := time.Now().UTC()
	bid := models.Bid{User: bidder.ID, Amount: amount, CreatedAt: now}

	filter := bson.M{
		"_id":         listingID,
		"deleted":     false,
		"is_locked":   false,
		"is_sold":     false,
		"is_biddable": true,
		"posted_by":   bson.M{"$ne": bidder.ID},
		"highest_bid": bson.M{"$lt": amount},
	}
	update := bson.M{
		"$push": bson.M{"bids": bid},
		"$set": bson.M{
			"highest_bid":    amount,
			"highest_bidder": bidder.ID,
			"updated_at":     now,
		},
	}

	var updated models.Listing
	err := s.db.Collection(listingsCollection).
		FindOneAndUpdate(ctx, filter, update, findOneAndUpdateReturnAfter()).Decode(&updated)
	if err == nil {
		s.cacheInvalidate(ctx, listingID)
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("db error placing bid on listing %s: %w", listingID.Hex(), err)
	}

	// The conditional update matched nothing; re-read to report why.
	var listing models.Listing
	checkErr := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if errors.Is(checkErr, mongo.ErrNoDocuments) || (checkErr == nil && listing.Deleted) {
		return nil, apperr.NotFound("listing %s not found", listingID.Hex())
	}
	if checkErr != nil {
		return nil, fmt.Errorf("error checking listing %s after failed bid: %w", listingID.Hex(), checkErr)
	}
	switch {
	case listing.PostedBy == bidder.ID:
		return nil, apperr.Forbidden("owners cannot bid on their own listing")
	case listing.IsLocked:
		return nil, apperr.Conflict("listing %s is locked", listingID.Hex())
	case listing.IsSold:
		return nil, apperr.Conflict("listing %s is already sold", listingID.Hex())
	case !listing.IsBiddable:
		return nil, apperr.Validation("listing %s does not accept bids", listingID.Hex())
	default:
		return nil, apperr.Validation("bid must exceed the current highest bid of %g", listing.HighestBid)
	}
}

// MarkSold completes the sale of a listing. For biddable listings the buyer
// defaults to the highest bidder; a biddable listing with no bids requires
// an explicit buyer. An explicit buyer must be an existing user other than
// the owner. The transition is terminal for bidding.
func (s *listingService) MarkSold(ctx context.Context, listingID primitive.ObjectID, actor *models.User, buyer *primitive.ObjectID) (*models.Listing, error) {
	if err := s.gate.Allow(actor, false); err != nil {
		return nil, err
	}

	listing, err := s.findRaw(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.PostedBy != actor.ID {
		return nil, apperr.Forbidden("only the owner can mark listing %s as sold", listingID.Hex())
	}
	if state := listing.State(); !state.CanTransition(models.ListingSold) {
		return nil, apperr.Conflict("listing %s cannot be sold while %s", listingID.Hex(), state)
	}
	if buyer != nil {
		if *buyer == actor.ID {
			return nil, apperr.Validation("the owner cannot be the buyer of their own listing")
		}
		count, err := s.db.Collection(usersCollection).CountDocuments(ctx, bson.M{"_id": *buyer})
		if err != nil {
			return nil, fmt.Errorf("error checking buyer %s: %w", buyer.Hex(), err)
		}
		if count == 0 {
			return nil, apperr.NotFound("buyer %s not found", buyer.Hex())
		}
	}
	if listing.IsBiddable && buyer == nil {
		if listing.HighestBidder == nil {
			return nil, apperr.Precondition("listing %s has no bids; an explicit buyer is required", listingID.Hex())
		}
		buyer = listing.HighestBidder
	}

	now := time.Now().UTC()
	filter := bson.M{
		"_id":       listingID,
		"posted_by": actor.ID,
		"deleted":   false,
		"is_sold":   false,
		"is_locked": false,
	}
	set := bson.M{"is_sold": true, "sold_at": now, "updated_at": now}
	if buyer != nil {
		set["sold_to"] = *buyer
	}

	var updated models.Listing
	err = s.db.Collection(listingsCollection).
		FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, findOneAndUpdateReturnAfter()).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Lost a race with a concurrent sale or lock.
			return nil, apperr.Conflict("listing %s changed state concurrently", listingID.Hex())
		}
		return nil, fmt.Errorf("db error marking listing %s sold: %w", listingID.Hex(), err)
	}

	s.cacheInvalidate(ctx, listingID)
	return &updated, nil
}

// LockListing is a moderation action freezing all writes to a listing while
// keeping it visible for audit. It applies regardless of sale state.
func (s *listingService) LockListing(ctx context.Context, listingID primitive.ObjectID, moderator *models.User) error {
	if !moderator.Role.IsModerator() {
		return apperr.Forbidden("user %s is not a moderator", moderator.Username)
	}

	listing, err := s.findRaw(ctx, listingID)
	if err != nil {
		return err
	}
	if state := listing.State(); !state.CanTransition(models.ListingLocked) {
		return apperr.Conflict("listing %s is already locked", listingID.Hex())
	}

	filter := bson.M{"_id": listingID, "deleted": false, "is_locked": false}
	update := bson.M{"$set": bson.M{"is_locked": true, "updated_at": time.Now().UTC()}}
	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error locking listing %s: %w", listingID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return apperr.Conflict("listing %s is already locked", listingID.Hex())
	}

	s.cacheInvalidate(ctx, listingID)
	log.Printf("Listing %s locked by moderator %s", listingID.Hex(), moderator.Username)
	return nil
}

// FlagReported marks a listing as reported. Idempotent; used by the
// moderation intake when a report is filed against a listing.
func (s *listingService) FlagReported(ctx context.Context, listingID primitive.ObjectID) error {
	filter := bson.M{"_id": listingID, "deleted": false}
	update := bson.M{"$set": bson.M{"is_reported": true, "updated_at": time.Now().UTC()}}
	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error flagging listing %s as reported: %w", listingID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("listing %s not found", listingID.Hex())
	}
	s.cacheInvalidate(ctx, listingID)
	return nil
}

// DeleteListing performs a soft delete. It is rejected while any open
// dispute references the listing, so dispute audit trails never dangle.
func (s *listingService) DeleteListing(ctx context.Context, listingID primitive.ObjectID, actor *models.User) error {
	listing, err := s.findRaw(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.PostedBy != actor.ID && !actor.Role.IsModerator() {
		return apperr.Forbidden("only the owner or a moderator can delete listing %s", listingID.Hex())
	}

	openDisputes, err := s.db.Collection(disputesCollection).CountDocuments(ctx, bson.M{
		"listing": listingID,
		"status":  models.DisputeOpen,
	})
	if err != nil {
		return fmt.Errorf("error counting open disputes for listing %s: %w", listingID.Hex(), err)
	}
	if openDisputes > 0 {
		return apperr.Conflict("listing %s has %d open dispute(s) and cannot be deleted", listingID.Hex(), openDisputes)
	}

	now := time.Now().UTC()
	filter := bson.M{"_id": listingID, "deleted": false}
	update := bson.M{"$set": bson.M{"deleted": true, "deleted_at": now, "updated_at": now}}
	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error deleting listing %s: %w", listingID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("listing %s not found", listingID.Hex())
	}

	s.cacheInvalidate(ctx, listingID)
	return nil
}

// findRaw loads a non-deleted listing without touching the cache; mutating
// paths use it so their decisions are made against fresh state.
func (s *listingService) findRaw(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).
		FindOne(ctx, bson.M{"_id": listingID, "deleted": false}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("listing %s not found", listingID.Hex())
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID.Hex(), err)
	}
	return &listing, nil
}

// --- Redis read cache ---

func listingCacheKey(id primitive.ObjectID) string {
	return "listing:" + id.Hex()
}

func (s *listingService) cacheGet(ctx context.Context, id primitive.ObjectID) *models.Listing {
	if s.rdb == nil {
		return nil
	}
	data, err := s.rdb.Get(ctx, listingCacheKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Listing cache read error for %s: %v", id.Hex(), err)
		}
		return nil
	}
	var listing models.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		log.Printf("Listing cache decode error for %s: %v", id.Hex(), err)
		return nil
	}
	return &listing
}

func (s *listingService) cacheSet(ctx context.Context, listing *models.Listing) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(listing)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, listingCacheKey(listing.ID), data, s.cfg.ListingCacheTTL).Err(); err != nil {
		log.Printf("Listing cache write error for %s: %v", listing.ID.Hex(), err)
	}
}

func (s *listingService) cacheInvalidate(ctx context.Context, id primitive.ObjectID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, listingCacheKey(id)).Err(); err != nil {
		log.Printf("Listing cache invalidate error for %s: %v", id.Hex(), err)
	}
}
