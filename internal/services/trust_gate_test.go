package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rileyflames/marketplace/internal/apperr"
	"github.com/rileyflames/marketplace/internal/config"
	"github.com/rileyflames/marketplace/internal/models"
)

func TestTrustGate_Allow(t *testing.T) {
	gate := NewTrustGate(&config.Config{WarningBanThreshold: 3})

	assert.NoError(t, gate.Allow(&models.User{Username: "ok"}, false))
	assert.NoError(t, gate.Allow(&models.User{Username: "warned", Warnings: 2}, false))

	err := gate.Allow(nil, false)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	err = gate.Allow(&models.User{Username: "banned", Banned: true, BanReason: "fraud"}, false)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	assert.Contains(t, err.Error(), "fraud")

	err = gate.Allow(&models.User{Username: "atlimit", Warnings: 3}, false)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	err = gate.Allow(&models.User{Username: "over", Warnings: 7}, false)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestTrustGate_ModeratorOverride(t *testing.T) {
	gate := NewTrustGate(&config.Config{WarningBanThreshold: 3})

	// The override lifts the warning block but never the ban.
	assert.NoError(t, gate.Allow(&models.User{Username: "warned", Warnings: 5}, true))
	err := gate.Allow(&models.User{Username: "banned", Banned: true}, true)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestTrustGate_DisabledThreshold(t *testing.T) {
	// A zero threshold disables the warning gate entirely.
	gate := NewTrustGate(&config.Config{WarningBanThreshold: 0})
	assert.NoError(t, gate.Allow(&models.User{Username: "many", Warnings: 100}, false))
}
