package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role defines the authorization level of a user.
type Role string

const (
	RoleUser           Role = "user"
	RoleModerator      Role = "moderator"
	RoleSuperModerator Role = "super-moderator"
	RoleAdmin          Role = "admin"
)

// IsModerator reports whether the role carries moderation privileges.
func (r Role) IsModerator() bool {
	switch r {
	case RoleModerator, RoleSuperModerator, RoleAdmin:
		return true
	}
	return false
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleSuperModerator, RoleAdmin:
		return true
	}
	return false
}

// ListingsCount tracks a user's listing quota usage.
// Invariant: Total == Free + Paid, and Free never exceeds the free quota.
type ListingsCount struct {
	Free  int `bson:"free" json:"free"`
	Paid  int `bson:"paid" json:"paid"`
	Total int `bson:"total" json:"total"`
}

// RatingsSummary is the denormalized reputation snapshot maintained from
// individual Rating records. It is a derived projection and can always be
// rebuilt from the ratings collection.
type RatingsSummary struct {
	Average   float64 `bson:"average" json:"average"`
	Count     int     `bson:"count" json:"count"`
	GoodCount int     `bson:"good_count" json:"good_count"`
	BadCount  int     `bson:"bad_count" json:"bad_count"`
}

// User represents a marketplace account. Users are never hard-deleted, only
// flagged (banned), so that ratings, reports and disputes keep valid
// references.
type User struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Name             string              `bson:"name" json:"name"`
	Username         string              `bson:"username" json:"username"`
	Email            string              `bson:"email" json:"email"`
	PasswordHash     string              `bson:"password" json:"-"`
	Avatar           string              `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Badges           []string            `bson:"badges" json:"badges"`
	Role             Role                `bson:"role" json:"role"`
	ListingsCount    ListingsCount       `bson:"listings_count" json:"listings_count"`
	Ratings          RatingsSummary      `bson:"ratings" json:"ratings"`
	Banned           bool                `bson:"banned" json:"banned"`
	BanReason        string              `bson:"ban_reason,omitempty" json:"ban_reason,omitempty"`
	BannedBy         *primitive.ObjectID `bson:"banned_by,omitempty" json:"banned_by,omitempty"`
	Warnings         int                 `bson:"warnings" json:"warnings"`
	IsVerified       bool                `bson:"is_verified" json:"is_verified"`
	HasActiveDispute bool                `bson:"has_active_dispute" json:"has_active_dispute"`
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `bson:"updated_at" json:"updated_at"`
}
