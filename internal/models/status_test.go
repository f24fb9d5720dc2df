package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListingStateTransitions(t *testing.T) {
	assert.True(t, ListingActive.CanTransition(ListingSold))
	assert.True(t, ListingActive.CanTransition(ListingLocked))
	assert.True(t, ListingSold.CanTransition(ListingLocked))

	assert.False(t, ListingSold.CanTransition(ListingSold))
	assert.False(t, ListingSold.CanTransition(ListingActive))
	assert.False(t, ListingLocked.CanTransition(ListingSold))
	assert.False(t, ListingLocked.CanTransition(ListingActive))
}

func TestReportStatusTransitions(t *testing.T) {
	assert.True(t, ReportPending.CanTransition(ReportReviewed))
	assert.True(t, ReportPending.CanTransition(ReportDismissed))

	for _, terminal := range []ReportStatus{ReportReviewed, ReportDismissed} {
		assert.True(t, terminal.Terminal())
		for _, to := range []ReportStatus{ReportPending, ReportReviewed, ReportDismissed} {
			assert.False(t, terminal.CanTransition(to), "%s -> %s should be rejected", terminal, to)
		}
	}
	assert.False(t, ReportPending.Terminal())
}

func TestDisputeStatusTransitions(t *testing.T) {
	assert.True(t, DisputeOpen.CanTransition(DisputeResolved))
	assert.True(t, DisputeOpen.CanTransition(DisputeClosed))
	assert.False(t, DisputeOpen.Terminal())

	for _, terminal := range []DisputeStatus{DisputeResolved, DisputeClosed} {
		assert.True(t, terminal.Terminal())
		assert.False(t, terminal.CanTransition(DisputeOpen), "%s must never reopen", terminal)
	}
}

func TestRoleModeration(t *testing.T) {
	assert.False(t, RoleUser.IsModerator())
	assert.True(t, RoleModerator.IsModerator())
	assert.True(t, RoleSuperModerator.IsModerator())
	assert.True(t, RoleAdmin.IsModerator())
	assert.False(t, Role("ghost").Valid())
}

func TestListingFlagValid(t *testing.T) {
	assert.True(t, FlagSale.Valid())
	assert.True(t, FlagWanted.Valid())
	assert.True(t, FlagHelp.Valid())
	assert.False(t, ListingFlag("auction").Valid())
}

func TestValidCategoryName(t *testing.T) {
	assert.True(t, ValidCategoryName("laptops"))
	assert.False(t, ValidCategoryName("Laptops"))
	assert.False(t, ValidCategoryName("spaceships"))
}
