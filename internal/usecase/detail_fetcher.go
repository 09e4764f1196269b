package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"golang.org/x/sync/errgroup"
)

// DefaultVoteDecimals is assumed when neither the token nor the network
// configuration says otherwise
const DefaultVoteDecimals int32 = 18

// DetailFetcher reads the ledger-resident fields of a proposal
type DetailFetcher struct {
	reader   GovernorReader
	batch    bool
	fallback int32
	log      *slog.Logger

	viewer atomic.Pointer[common.Address]

	decimalsMu       sync.Mutex
	decimals         int32
	decimalsResolved bool
}

// NewDetailFetcher creates a fetcher. When batch is set and reader supports
// it, snapshots are read in a single round trip.
func NewDetailFetcher(reader GovernorReader, batch bool, fallbackDecimals int32, log *slog.Logger) *DetailFetcher {
	if fallbackDecimals <= 0 {
		fallbackDecimals = DefaultVoteDecimals
	}
	return &DetailFetcher{
		reader:   reader,
		batch:    batch,
		fallback: fallbackDecimals,
		log:      log.With("component", "DetailFetcher"),
	}
}

// SetViewer changes the identity used for hasVoted reads; nil disables them
func (f *DetailFetcher) SetViewer(viewer *common.Address) {
	if viewer == nil {
		f.viewer.Store(nil)
		return
	}
	v := *viewer
	f.viewer.Store(&v)
}

// Viewer returns the current identity, if any
func (f *DetailFetcher) Viewer() *common.Address {
	return f.viewer.Load()
}

// FetchState performs the lightweight state read
func (f *DetailFetcher) FetchState(ctx context.Context, id models.ProposalID) (models.ProposalState, error) {
	state, err := f.reader.State(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("%w: state of %s: %v", domain.ErrTransientRead, id.Short(), err)
	}
	return state, nil
}

// Snapshot reads every ledger-resident field of a proposal. Either all reads
// succeed or the whole snapshot fails with ErrTransientRead.
func (f *DetailFetcher) Snapshot(ctx context.Context, id models.ProposalID) (*models.ProposalPatch, error) {
	viewer := f.viewer.Load()

	var (
		snap *models.ProposalSnapshot
		err  error
	)
	if br, ok := f.reader.(BatchGovernorReader); ok && f.batch {
		snap, err = br.ReadProposal(ctx, id, viewer)
	} else {
		snap, err = f.readConcurrently(ctx, id, viewer)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot of %s: %v", domain.ErrTransientRead, id.Short(), err)
	}

	patch := &models.ProposalPatch{
		State:          lo.ToPtr(snap.State),
		SnapshotHeight: lo.ToPtr(snap.SnapshotHeight),
		DeadlineHeight: lo.ToPtr(snap.DeadlineHeight),
		Votes:          lo.ToPtr(snap.Votes.Scale(f.voteDecimals(ctx))),
		ETA:            lo.ToPtr(snap.ETA),
	}
	if viewer != nil && snap.HasVoted != nil {
		patch.ViewerVote = &models.ViewerVote{Viewer: *viewer, HasVoted: *snap.HasVoted}
	}
	return patch, nil
}

func (f *DetailFetcher) readConcurrently(ctx context.Context, id models.ProposalID, viewer *common.Address) (*models.ProposalSnapshot, error) {
	var snap models.ProposalSnapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		state, err := f.reader.State(gctx, id)
		if err != nil {
			return fmt.Errorf("state: %w", err)
		}
		snap.State = state
		return nil
	})
	g.Go(func() error {
		h, err := f.reader.ProposalSnapshot(gctx, id)
		if err != nil {
			return fmt.Errorf("proposalSnapshot: %w", err)
		}
		snap.SnapshotHeight = h
		return nil
	})
	g.Go(func() error {
		h, err := f.reader.ProposalDeadline(gctx, id)
		if err != nil {
			return fmt.Errorf("proposalDeadline: %w", err)
		}
		snap.DeadlineHeight = h
		return nil
	})
	g.Go(func() error {
		votes, err := f.reader.ProposalVotes(gctx, id)
		if err != nil {
			return fmt.Errorf("proposalVotes: %w", err)
		}
		snap.Votes = votes
		return nil
	})
	g.Go(func() error {
		eta, err := f.reader.ProposalEta(gctx, id)
		if err != nil {
			return fmt.Errorf("proposalEta: %w", err)
		}
		snap.ETA = eta
		return nil
	})
	if viewer != nil {
		g.Go(func() error {
			voted, err := f.reader.HasVoted(gctx, id, *viewer)
			if err != nil {
				return fmt.Errorf("hasVoted: %w", err)
			}
			snap.HasVoted = &voted
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (f *DetailFetcher) voteDecimals(ctx context.Context) int32 {
	f.decimalsMu.Lock()
	defer f.decimalsMu.Unlock()
	if f.decimalsResolved {
		return f.decimals
	}
	decimals, err := f.reader.VoteDecimals(ctx)
	if err != nil {
		// not cached, the next snapshot asks again
		f.log.Warn("failed to read voting token decimals, using configured value", "error", err, "decimals", f.fallback)
		return f.fallback
	}
	f.decimals = decimals
	f.decimalsResolved = true
	return decimals
}
