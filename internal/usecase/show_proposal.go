package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/config"
	"github.com/trebuchet-org/govsync/internal/domain/models"
)

// ShowProposalParams contains parameters for showing a proposal.
// An empty ID selects interactively when a selector is available.
type ShowProposalParams struct {
	ID models.ProposalID
}

// ProposalDetail is a proposal plus the ledger context needed to read it
type ProposalDetail struct {
	Proposal   *models.ProposalRecord `json:"proposal"`
	Executable bool                   `json:"executable"`
	Height     uint64                 `json:"height"`
	LedgerNow  uint64                 `json:"ledgerNow"`

	// Projected wall times of the snapshot and deadline heights
	SnapshotAt time.Time `json:"snapshotAt"`
	DeadlineAt time.Time `json:"deadlineAt"`
}

// ShowProposal is the use case for showing proposal details
type ShowProposal struct {
	config   *config.RuntimeConfig
	sessions *SessionFactory
	selector ProposalSelector
	sink     ProgressSink
}

// NewShowProposal creates a new ShowProposal use case
func NewShowProposal(cfg *config.RuntimeConfig, sessions *SessionFactory, selector ProposalSelector, sink ProgressSink) *ShowProposal {
	return &ShowProposal{
		config:   cfg,
		sessions: sessions,
		selector: selector,
		sink:     sink,
	}
}

// Run executes the show proposal use case
func (uc *ShowProposal) Run(ctx context.Context, params ShowProposalParams) (*ProposalDetail, error) {
	session, err := uc.sessions.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	// Report progress
	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "loading",
		Message: "Loading proposal details",
		Spinner: true,
	})

	if err := session.Load(ctx); err != nil {
		return nil, err
	}

	var proposal *models.ProposalRecord
	if params.ID == "" {
		proposal, err = uc.pick(ctx, session)
	} else {
		proposal, err = uc.lookup(session, params.ID)
	}
	if err != nil {
		return nil, err
	}

	now := session.CurrentTime()
	return &ProposalDetail{
		Proposal:   proposal,
		Executable: IsExecutable(proposal.ETA, now),
		Height:     session.CurrentHeight(),
		LedgerNow:  now,
		SnapshotAt: session.EstimateTimeAt(proposal.SnapshotHeight),
		DeadlineAt: session.EstimateTimeAt(proposal.DeadlineHeight),
	}, nil
}

// lookup accepts the full identifier or an unambiguous prefix of it
func (uc *ShowProposal) lookup(session *SyncSession, id models.ProposalID) (*models.ProposalRecord, error) {
	if rec, err := session.GetProposal(id); err == nil {
		return rec, nil
	}

	var matches []*models.ProposalRecord
	for _, rec := range session.ListProposals(domain.ProposalFilter{}) {
		if strings.HasPrefix(string(rec.ID), string(id)) {
			matches = append(matches, rec)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("proposal %s: %w", id, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return nil, fmt.Errorf("proposal id %s is ambiguous: %d matches", id, len(matches))
}

func (uc *ShowProposal) pick(ctx context.Context, session *SyncSession) (*models.ProposalRecord, error) {
	proposals := session.ListProposals(domain.ProposalFilter{})
	if len(proposals) == 0 {
		return nil, fmt.Errorf("no proposals on %s: %w", session.Network().Name, domain.ErrNotFound)
	}
	if uc.selector == nil || uc.config.NonInteractive {
		return nil, fmt.Errorf("proposal id is required in non-interactive mode")
	}
	return uc.selector.SelectProposal(ctx, proposals, "Select a proposal")
}
