package domain

import (
	"errors"
	"fmt"

	"github.com/trebuchet-org/govsync/internal/domain/models"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested proposal is not cached
	ErrNotFound = errors.New("not found")

	// ErrTransientRead is returned when a ledger read failed; the caller
	// retries on the next natural trigger
	ErrTransientRead = errors.New("transient ledger read failure")

	// ErrMalformedEvent is returned when an event payload is missing fields
	ErrMalformedEvent = errors.New("malformed event")

	// ErrUnknownProposal is returned for lifecycle events whose proposal was never created
	ErrUnknownProposal = errors.New("event for unknown proposal")

	// ErrStaleSubscription is returned when a callback fires after its session ended
	ErrStaleSubscription = errors.New("stale subscription")

	// ErrStaleSnapshot is returned when a snapshot would move a proposal backwards
	ErrStaleSnapshot = errors.New("stale snapshot")

	// ErrLoadProposals is returned when the cold-start scan could not complete
	ErrLoadProposals = errors.New("failed to load proposals")

	// ErrNotTestLedger is returned when the harness is pointed at a ledger it may not mutate
	ErrNotTestLedger = errors.New("ledger is not under test control")

	// ErrReconcileInFlight is returned when a reconciliation pass is already running
	ErrReconcileInFlight = errors.New("reconciliation already in flight")

	// ErrNetworkNotConfigured is returned when no network was selected or found
	ErrNetworkNotConfigured = errors.New("network not configured")
)

// TransitionErr describes a rejected lifecycle transition
type TransitionErr struct {
	ID   models.ProposalID
	From models.ProposalState
	To   models.ProposalState
}

func (e TransitionErr) Error() string {
	return fmt.Sprintf("proposal %s cannot move from %s to %s", e.ID.Short(), e.From, e.To)
}

func (e TransitionErr) Unwrap() error {
	return ErrStaleSnapshot
}
