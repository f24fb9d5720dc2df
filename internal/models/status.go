package models

// The lifecycle of listings, reports and disputes is modeled as closed
// enumerations with a single transition table per entity. Every status write
// in the services goes through CanTransition, so there is exactly one place
// where "resolved never reopens" and friends are decided.

// ListingState is the derived sale state of a listing.
type ListingState string

const (
	ListingActive ListingState = "active"
	ListingSold   ListingState = "sold"
	ListingLocked ListingState = "locked"
)

var listingTransitions = map[ListingState][]ListingState{
	ListingActive: {ListingSold, ListingLocked},
	// Locking is an administrative action available regardless of sale state.
	ListingSold:   {ListingLocked},
	ListingLocked: {},
}

// CanTransition reports whether the listing state machine allows s -> to.
func (s ListingState) CanTransition(to ListingState) bool {
	for _, next := range listingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ReportStatus is the moderation state of a report.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewed  ReportStatus = "reviewed"
	ReportDismissed ReportStatus = "dismissed"
)

var reportTransitions = map[ReportStatus][]ReportStatus{
	ReportPending:   {ReportReviewed, ReportDismissed},
	ReportReviewed:  {},
	ReportDismissed: {},
}

// CanTransition reports whether the report state machine allows s -> to.
func (s ReportStatus) CanTransition(to ReportStatus) bool {
	for _, next := range reportTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the report has been reviewed or dismissed.
func (s ReportStatus) Terminal() bool {
	return len(reportTransitions[s]) == 0
}

// DisputeStatus is the state of a dispute thread.
type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
	DisputeClosed   DisputeStatus = "closed"
)

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeOpen:     {DisputeResolved, DisputeClosed},
	DisputeResolved: {},
	DisputeClosed:   {},
}

// CanTransition reports whether the dispute state machine allows s -> to.
func (s DisputeStatus) CanTransition(to DisputeStatus) bool {
	for _, next := range disputeTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the dispute has reached resolved or closed.
func (s DisputeStatus) Terminal() bool {
	return len(disputeTransitions[s]) == 0
}
