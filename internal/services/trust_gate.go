package services

import (
	"github.com/rileyflames/marketplace/internal/apperr"
	"github.com/rileyflames/marketplace/internal/config"
	"github.com/rileyflames/marketplace/internal/models"
)

// TrustGate is the policy check applied before every mutating operation
// (posting, bidding, rating, dispute actions). It is pure logic over an
// already-loaded user record and holds no state beyond its thresholds.
type TrustGate struct {
	warningThreshold int
}

// NewTrustGate creates a TrustGate with thresholds taken from config.
func NewTrustGate(cfg *config.Config) *TrustGate {
	return &TrustGate{warningThreshold: cfg.WarningBanThreshold}
}

// Allow returns nil if the user may perform a mutating action. Banned users
// are always rejected. Users at or above the warning threshold are rejected
// unless a moderator override is supplied by the caller.
func (g *TrustGate) Allow(user *models.User, moderatorOverride bool) error {
	if user == nil {
		return apperr.NotFound("user not found")
	}
	if user.Banned {
		if user.BanReason != "" {
			return apperr.Forbidden("user %s is banned: %s", user.Username, user.BanReason)
		}
		return apperr.Forbidden("user %s is banned", user.Username)
	}
	if g.warningThreshold > 0 && user.Warnings >= g.warningThreshold && !moderatorOverride {
		return apperr.Forbidden("user %s has %d warnings and requires moderator override", user.Username, user.Warnings)
	}
	return nil
}
