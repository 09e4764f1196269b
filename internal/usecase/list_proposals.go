package usecase

import (
	"context"

	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/config"
	"github.com/trebuchet-org/govsync/internal/domain/models"
)

// ListProposalsParams contains parameters for listing proposals
type ListProposalsParams struct {
	States   []models.ProposalState
	Proposer string
}

// ProposalListResult contains the result of listing proposals
type ProposalListResult struct {
	Network   string
	Height    uint64
	LedgerNow uint64
	Proposals []*models.ProposalRecord
	Summary   ProposalSummary
}

// ProposalSummary provides summary statistics
type ProposalSummary struct {
	Total   int
	ByState map[models.ProposalState]int
	// Executable counts queued proposals whose eta has passed
	Executable int
}

// ListProposals is the use case for listing proposals
type ListProposals struct {
	config   *config.RuntimeConfig
	sessions *SessionFactory
	sink     ProgressSink
}

// NewListProposals creates a new ListProposals use case
func NewListProposals(cfg *config.RuntimeConfig, sessions *SessionFactory, sink ProgressSink) *ListProposals {
	return &ListProposals{
		config:   cfg,
		sessions: sessions,
		sink:     sink,
	}
}

// Run executes the list proposals use case
func (uc *ListProposals) Run(ctx context.Context, params ListProposalsParams) (*ProposalListResult, error) {
	session, err := uc.sessions.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	// Report progress
	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "loading",
		Message: "Loading proposals from " + session.Network().Name,
		Spinner: true,
	})

	if err := session.Load(ctx); err != nil {
		return nil, err
	}

	proposals := session.ListProposals(domain.ProposalFilter{
		States:   params.States,
		Proposer: params.Proposer,
	})
	now := session.CurrentTime()

	// Report completion
	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "complete",
		Current: len(proposals),
		Total:   len(proposals),
		Message: "Proposals loaded",
	})

	return &ProposalListResult{
		Network:   session.Network().Name,
		Height:    session.CurrentHeight(),
		LedgerNow: now,
		Proposals: proposals,
		Summary:   calculateSummary(proposals, now),
	}, nil
}

// calculateSummary calculates summary statistics for proposals
func calculateSummary(proposals []*models.ProposalRecord, now uint64) ProposalSummary {
	summary := ProposalSummary{
		Total:   len(proposals),
		ByState: make(map[models.ProposalState]int),
	}
	for _, p := range proposals {
		summary.ByState[p.State]++
		if IsExecutable(p.ETA, now) {
			summary.Executable++
		}
	}
	return summary
}
