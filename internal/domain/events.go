package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/govsync/internal/domain/models"
)

// EventKind names a Governor lifecycle event
type EventKind string

const (
	EventProposalCreated  EventKind = "ProposalCreated"
	EventVoteCast         EventKind = "VoteCast"
	EventProposalQueued   EventKind = "ProposalQueued"
	EventProposalExecuted EventKind = "ProposalExecuted"
	EventProposalCanceled EventKind = "ProposalCanceled"
)

// AllEventKinds lists every kind the engine subscribes to
var AllEventKinds = []EventKind{
	EventProposalCreated,
	EventVoteCast,
	EventProposalQueued,
	EventProposalExecuted,
	EventProposalCanceled,
}

// ProposalEvent is a decoded Governor log
type ProposalEvent struct {
	Kind       EventKind
	ProposalID models.ProposalID
	Height     uint64
	LogIndex   uint
	TxHash     common.Hash

	// ProposalCreated
	Proposer    common.Address
	Targets     []common.Address
	Values      []*big.Int
	Calldatas   [][]byte
	Description string
	VoteStart   uint64
	VoteEnd     uint64

	// VoteCast
	Voter common.Address

	// ProposalQueued
	ETA uint64
}

// Validate checks that the event carries what its kind requires
func (e *ProposalEvent) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrMalformedEvent)
	}
	if e.ProposalID == "" {
		return fmt.Errorf("%w: %s without proposal id", ErrMalformedEvent, e.Kind)
	}
	switch e.Kind {
	case EventProposalCreated:
		if len(e.Targets) != len(e.Values) || len(e.Targets) != len(e.Calldatas) {
			return fmt.Errorf("%w: action arrays differ in length: targets=%d values=%d calldata=%d",
				ErrMalformedEvent, len(e.Targets), len(e.Values), len(e.Calldatas))
		}
	case EventVoteCast, EventProposalQueued, EventProposalExecuted, EventProposalCanceled:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedEvent, e.Kind)
	}
	return nil
}

func (e *ProposalEvent) String() string {
	return fmt.Sprintf("%s: proposal=%s height=%d tx=%s", e.Kind, e.ProposalID.Short(), e.Height, e.TxHash.Hex())
}
