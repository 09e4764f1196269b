package usecase

import (
	"context"
	"log/slog"

	"github.com/trebuchet-org/govsync/internal/domain/models"
)

// WatchProposalsParams contains parameters for a live session
type WatchProposalsParams struct {
	// Publisher, when set, receives every record change
	Publisher ChangePublisher
	// OnChange, when set, is called for every record change
	OnChange ChangeListener
}

// WatchProposals starts long-lived sessions that follow the ledger
type WatchProposals struct {
	sessions *SessionFactory
	sink     ProgressSink
	log      *slog.Logger
}

// NewWatchProposals creates a new WatchProposals use case
func NewWatchProposals(sessions *SessionFactory, sink ProgressSink, log *slog.Logger) *WatchProposals {
	return &WatchProposals{
		sessions: sessions,
		sink:     sink,
		log:      log.With("component", "WatchProposals"),
	}
}

// Run starts a live session. The caller owns the session and must Close it.
func (uc *WatchProposals) Run(ctx context.Context, params WatchProposalsParams) (*SyncSession, error) {
	session, err := uc.sessions.NewSession()
	if err != nil {
		return nil, err
	}

	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "loading",
		Message: "Synchronizing proposals from " + session.Network().Name,
		Spinner: true,
	})

	if params.Publisher != nil {
		pub := params.Publisher
		session.OnChange(func(r *models.ProposalRecord) {
			if err := pub.PublishChange(ctx, r); err != nil {
				uc.log.Warn("failed to publish change", "proposal", r.ID.Short(), "error", err)
			}
		})
	}
	if params.OnChange != nil {
		session.OnChange(params.OnChange)
	}

	if err := session.Start(ctx); err != nil {
		session.Close()
		return nil, err
	}

	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "complete",
		Current: session.store.Len(),
		Message: "Watching for changes",
	})
	return session, nil
}
