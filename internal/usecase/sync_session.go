package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/config"
	"github.com/trebuchet-org/govsync/internal/domain/models"
)

// coldScanKinds are the events needed to rebuild the cache from history.
// Everything else is covered by the snapshot taken at creation.
var coldScanKinds = []domain.EventKind{
	domain.EventProposalCreated,
	domain.EventProposalExecuted,
	domain.EventProposalCanceled,
}

// SessionFactory builds sync sessions for the configured network
type SessionFactory struct {
	cfg      *config.RuntimeConfig
	chain    ChainReader
	governor GovernorReader
	events   EventSource
	metrics  SyncMetrics
	progress ProgressSink
	log      *slog.Logger
}

// NewSessionFactory creates a new SessionFactory
func NewSessionFactory(
	cfg *config.RuntimeConfig,
	chain ChainReader,
	governor GovernorReader,
	events EventSource,
	metrics SyncMetrics,
	progress ProgressSink,
	log *slog.Logger,
) *SessionFactory {
	return &SessionFactory{
		cfg:      cfg,
		chain:    chain,
		governor: governor,
		events:   events,
		metrics:  metrics,
		progress: progress,
		log:      log,
	}
}

// NewSession wires a fresh store, clock, fetcher, ingestor and reconciler
func (f *SessionFactory) NewSession() (*SyncSession, error) {
	if f.cfg.Network == nil {
		return nil, domain.ErrNetworkNotConfigured
	}
	network := f.cfg.Network
	id := uuid.NewString()
	log := f.log.With("session", id[:8], "network", network.Name)

	metrics := f.metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}
	progress := f.progress
	if progress == nil {
		progress = NopProgress{}
	}

	blockTime := network.BlockTime
	if blockTime <= 0 {
		blockTime = config.DefaultBlockTime(network.ChainID)
	}

	store := NewProposalStore(log)
	fetcher := NewDetailFetcher(f.governor, network.BatchReads, network.VoteDecimals, log)
	fetcher.SetViewer(f.cfg.Viewer)

	return &SyncSession{
		id:         id,
		network:    network,
		settings:   f.cfg.Sync,
		events:     f.events,
		progress:   progress,
		store:      store,
		fetcher:    fetcher,
		clock:      NewChainClock(f.chain, f.cfg.Sync, blockTime, metrics, log),
		ingestor:   NewEventIngestor(store, fetcher, f.chain, metrics, log),
		reconciler: NewReconciler(store, fetcher, f.cfg.Sync.ReconcileConcurrency, metrics, log),
		log:        log.With("component", "SyncSession"),
	}, nil
}

// SyncSession is one synchronized view of a Governor. It owns every
// subscription and timer it starts; Close releases them together.
type SyncSession struct {
	id       string
	network  *config.Network
	settings config.SyncSettings
	events   EventSource
	progress ProgressSink
	log      *slog.Logger

	store      *ProposalStore
	fetcher    *DetailFetcher
	clock      *ChainClock
	ingestor   *EventIngestor
	reconciler *Reconciler

	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	mu        sync.Mutex
	lastBlock uint64
}

// ID returns the session identifier
func (s *SyncSession) ID() string { return s.id }

// Network returns the network the session follows
func (s *SyncSession) Network() *config.Network { return s.network }

// Load performs the cold-start scan without following the ledger afterwards
func (s *SyncSession) Load(ctx context.Context) error {
	if s.closed.Load() {
		return domain.ErrStaleSubscription
	}
	if err := s.clock.Init(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLoadProposals, err)
	}
	head := s.clock.CurrentHeight()
	if err := s.coldScan(ctx, s.network.FromBlock, head); err != nil {
		return err
	}
	s.setLastHeight(head)
	return nil
}

// Start loads history and then follows the ledger until Close
func (s *SyncSession) Start(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		return err
	}

	var sctx context.Context
	sctx, s.cancel = context.WithCancel(ctx)

	s.clock.OnSettledHeight(func(uint64) {
		if s.closed.Load() {
			return
		}
		s.reconciler.Trigger(sctx)
	})
	s.clock.Run(sctx)

	sub, ch, err := s.subscribe(sctx, s.lastHeight()+1)
	if err != nil {
		s.Close()
		return fmt.Errorf("%w: subscribe: %v", domain.ErrLoadProposals, err)
	}

	s.wg.Add(1)
	go s.consume(sctx, sub, ch)

	s.log.Info("session started", "proposals", s.store.Len(), "height", s.clock.CurrentHeight())
	return nil
}

func (s *SyncSession) subscribe(ctx context.Context, from uint64) (ethereum.Subscription, chan []domain.ProposalEvent, error) {
	ch := make(chan []domain.ProposalEvent, 64)
	sub, err := s.events.SubscribeEvents(ctx, from, ch)
	if err != nil {
		return nil, nil, err
	}
	return sub, ch, nil
}

func (s *SyncSession) consume(ctx context.Context, sub ethereum.Subscription, ch chan []domain.ProposalEvent) {
	defer s.wg.Done()
	defer func() { sub.Unsubscribe() }()

	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-ch:
			if s.closed.Load() {
				return
			}
			s.ingestor.HandleBatch(ctx, batch)
			if n := len(batch); n > 0 {
				s.setLastHeight(batch[n-1].Height)
			}
		case err := <-sub.Err():
			if ctx.Err() != nil || s.closed.Load() {
				return
			}
			s.log.Warn("event subscription dropped, resubscribing", "error", err, "from", s.lastHeight()+1)
			sub.Unsubscribe()
			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.settings.PollInterval):
				}
				next, nextCh, err := s.subscribe(ctx, s.lastHeight()+1)
				if err == nil {
					sub, ch = next, nextCh
					break
				}
				s.log.Warn("resubscribe failed", "error", err)
			}
		}
	}
}

func (s *SyncSession) coldScan(ctx context.Context, from, to uint64) error {
	if from > to {
		return nil
	}
	step := s.network.LogRange
	if step == 0 {
		step = to - from + 1
	}
	total := int((to-from)/step) + 1

	chunk := 0
	for start := from; start <= to; start += step {
		end := min(start+step-1, to)
		chunk++
		s.progress.OnProgress(ctx, ProgressEvent{
			Stage:   "scan",
			Current: chunk,
			Total:   total,
			Message: fmt.Sprintf("Scanning blocks %d-%d", start, end),
			Spinner: true,
		})

		events, err := s.events.FetchEvents(ctx, start, end, coldScanKinds...)
		if err != nil {
			return fmt.Errorf("%w: blocks %d-%d: %v", domain.ErrLoadProposals, start, end, err)
		}
		for idx := range events {
			ev := &events[idx]
			if err := s.ingestor.Apply(ctx, ev); err != nil {
				if errors.Is(err, domain.ErrTransientRead) {
					return fmt.Errorf("%w: %s: %w", domain.ErrLoadProposals, ev, err)
				}
				s.ingestor.report(ev, err)
			}
		}
		if end == to {
			break
		}
	}
	return nil
}

func (s *SyncSession) lastHeight() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBlock
}

func (s *SyncSession) setLastHeight(h uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h > s.lastBlock {
		s.lastBlock = h
	}
}

// Close stops every subscription, timer and goroutine of the session.
// Callbacks that fire afterwards are ignored.
func (s *SyncSession) Close() {
	if s.closed.Swap(true) {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.clock.Stop()
	s.reconciler.Stop()
	s.wg.Wait()
	s.log.Debug("session closed")
}

// ListProposals returns the cached proposals, newest first
func (s *SyncSession) ListProposals(filter domain.ProposalFilter) []*models.ProposalRecord {
	all := s.store.All()
	out := make([]*models.ProposalRecord, 0, len(all))
	for _, r := range all {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// GetProposal returns one cached proposal
func (s *SyncSession) GetProposal(id models.ProposalID) (*models.ProposalRecord, error) {
	return s.store.Get(id)
}

// IsExecutable reports whether the proposal's timelock has elapsed in ledger time
func (s *SyncSession) IsExecutable(id models.ProposalID) (bool, error) {
	rec, err := s.store.Get(id)
	if err != nil {
		return false, err
	}
	return IsExecutable(rec.ETA, s.clock.CurrentTime()), nil
}

// OnChange registers fn for record changes. It stops firing after Close.
func (s *SyncSession) OnChange(fn ChangeListener) func() {
	return s.store.OnChange(func(r *models.ProposalRecord) {
		if s.closed.Load() {
			return
		}
		fn(r)
	})
}

// SetViewer switches the observing identity and recomputes vote flags
func (s *SyncSession) SetViewer(ctx context.Context, viewer *common.Address) error {
	if s.closed.Load() {
		return domain.ErrStaleSubscription
	}
	s.fetcher.SetViewer(viewer)
	s.store.ResetViewer()
	if viewer == nil {
		return nil
	}

	var errs []error
	for _, rec := range s.store.All() {
		patch, err := s.fetcher.Snapshot(ctx, rec.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := s.store.Upsert(rec.ID, patch); err != nil && !errors.Is(err, domain.ErrStaleSnapshot) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reconcile runs a reconciliation pass now
func (s *SyncSession) Reconcile(ctx context.Context) (ReconcileReport, error) {
	return s.reconciler.Run(ctx)
}

// CurrentHeight returns the ledger height as last observed
func (s *SyncSession) CurrentHeight() uint64 { return s.clock.CurrentHeight() }

// CurrentTime returns the ledger time as last refreshed
func (s *SyncSession) CurrentTime() uint64 { return s.clock.CurrentTime() }

// BlockTimeEstimate returns the seconds-per-height estimate
func (s *SyncSession) BlockTimeEstimate() time.Duration { return s.clock.BlockTimeEstimate() }

// EstimateTimeAt projects when a height will be reached
func (s *SyncSession) EstimateTimeAt(height uint64) time.Time { return s.clock.EstimateTimeAt(height) }
