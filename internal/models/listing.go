package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListingFlag classifies what kind of post a listing is.
type ListingFlag string

const (
	FlagSale   ListingFlag = "sale"
	FlagWanted ListingFlag = "wanted"
	FlagHelp   ListingFlag = "help"
)

// Valid reports whether the flag is one of the known values.
func (f ListingFlag) Valid() bool {
	switch f {
	case FlagSale, FlagWanted, FlagHelp:
		return true
	}
	return false
}

// Bid is a single offer against a biddable listing. Bids are append-only:
// once recorded they are never mutated or removed, even when superseded by a
// higher bid.
type Bid struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	Amount    float64            `bson:"amount" json:"amount"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Location is the free-form place a listing is offered from. All fields are
// optional display data; nothing queries on them.
type Location struct {
	Suburb   string `bson:"suburb,omitempty" json:"suburb,omitempty"`
	City     string `bson:"city,omitempty" json:"city,omitempty"`
	Province string `bson:"province,omitempty" json:"province,omitempty"`
	Country  string `bson:"country,omitempty" json:"country,omitempty"`
}

// Listing represents a marketplace post (sale, wanted or help request).
//
// The embedded Bids slice is the source of truth for bidding history;
// HighestBid and HighestBidder are a denormalized projection of it and are
// only ever written together with a bid append, in the same conditional
// update.
type Listing struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Title         string              `bson:"title" json:"title"`
	Description   string              `bson:"description" json:"description"`
	Price         *float64            `bson:"price,omitempty" json:"price,omitempty"`
	Flag          ListingFlag         `bson:"flag" json:"flag"`
	Category      primitive.ObjectID  `bson:"category" json:"category"`
	Images        []string            `bson:"images" json:"images"`
	Location      *Location           `bson:"location,omitempty" json:"location,omitempty"`
	PostedBy      primitive.ObjectID  `bson:"posted_by" json:"posted_by"`
	IsSold        bool                `bson:"is_sold" json:"is_sold"`
	IsLocked      bool                `bson:"is_locked" json:"is_locked"`
	IsReported    bool                `bson:"is_reported" json:"is_reported"`
	Deleted       bool                `bson:"deleted" json:"-"`
	CommentsCount int                 `bson:"comments_count" json:"comments_count"`
	IsBiddable    bool                `bson:"is_biddable" json:"is_biddable"`
	Bids          []Bid               `bson:"bids" json:"bids"`
	HighestBid    float64             `bson:"highest_bid" json:"highest_bid"`
	HighestBidder *primitive.ObjectID `bson:"highest_bidder,omitempty" json:"highest_bidder,omitempty"`
	SoldTo        *primitive.ObjectID `bson:"sold_to,omitempty" json:"sold_to,omitempty"`
	SoldAt        *time.Time          `bson:"sold_at,omitempty" json:"sold_at,omitempty"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `bson:"updated_at" json:"updated_at"`
}

// State derives the lifecycle state from the listing's status flags.
// IsLocked supersedes IsSold for write purposes.
func (l *Listing) State() ListingState {
	switch {
	case l.IsLocked:
		return ListingLocked
	case l.IsSold:
		return ListingSold
	default:
		return ListingActive
	}
}
