package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"golang.org/x/sync/errgroup"
)

// ReconcileReport summarizes one reconciliation pass
type ReconcileReport struct {
	Checked   int
	Changed   int
	Failed    int
	Coalesced bool
}

// Reconciler re-reads the state of open proposals after height changes,
// catching transitions that emit no event (Pending→Active, Active→Defeated,
// Queued→Expired and so on). Only one pass runs at a time; triggers that
// arrive during a pass are dropped.
type Reconciler struct {
	store       *ProposalStore
	fetcher     *DetailFetcher
	concurrency int
	metrics     SyncMetrics
	log         *slog.Logger

	inFlight atomic.Bool

	mu      sync.Mutex
	stopped bool
	passes  sync.WaitGroup
}

// NewReconciler creates a reconciler over store
func NewReconciler(store *ProposalStore, fetcher *DetailFetcher, concurrency int, metrics SyncMetrics, log *slog.Logger) *Reconciler {
	if concurrency <= 0 {
		concurrency = 1
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Reconciler{
		store:       store,
		fetcher:     fetcher,
		concurrency: concurrency,
		metrics:     metrics,
		log:         log.With("component", "Reconciler"),
	}
}

// Trigger starts a pass in the background unless one is already running
// or the reconciler has been stopped
func (r *Reconciler) Trigger(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	if r.inFlight.Load() {
		r.metrics.ReconcileCoalesced()
		return
	}
	r.passes.Add(1)
	go func() {
		defer r.passes.Done()
		if _, err := r.Run(ctx); err != nil && ctx.Err() == nil && !errors.Is(err, domain.ErrReconcileInFlight) {
			r.log.Warn("reconciliation failed", "error", err)
		}
	}()
}

// Stop refuses further triggers and waits for a background pass to finish
func (r *Reconciler) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.passes.Wait()
}

// Run performs one pass synchronously. It returns ErrReconcileInFlight
// with a coalesced report when another pass holds the slot.
func (r *Reconciler) Run(ctx context.Context) (ReconcileReport, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.metrics.ReconcileCoalesced()
		return ReconcileReport{Coalesced: true}, domain.ErrReconcileInFlight
	}
	defer r.inFlight.Store(false)

	start := time.Now()
	var checked, changed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, rec := range r.store.All() {
		if !isOpen(rec.State) {
			continue
		}
		rec := rec
		g.Go(func() error {
			checked.Add(1)
			ok, err := r.reconcileOne(gctx, rec)
			switch {
			case err != nil:
				failed.Add(1)
				r.log.Debug("failed to reconcile proposal", "proposal", rec.ID.Short(), "error", err)
			case ok:
				changed.Add(1)
			}
			// per-record failures never cancel the pass
			return nil
		})
	}
	_ = g.Wait()

	report := ReconcileReport{
		Checked: int(checked.Load()),
		Changed: int(changed.Load()),
		Failed:  int(failed.Load()),
	}
	r.metrics.ReconcileCompleted(report, time.Since(start))
	if report.Changed > 0 || report.Failed > 0 {
		r.log.Info("reconciled proposals", "checked", report.Checked, "changed", report.Changed, "failed", report.Failed)
	}
	return report, ctx.Err()
}

func (r *Reconciler) reconcileOne(ctx context.Context, rec *models.ProposalRecord) (bool, error) {
	state, err := r.fetcher.FetchState(ctx, rec.ID)
	if err != nil {
		return false, err
	}
	if state == rec.State {
		return false, nil
	}
	patch, err := r.fetcher.Snapshot(ctx, rec.ID)
	if err != nil {
		return false, err
	}
	return r.store.Upsert(rec.ID, patch)
}

// InFlight reports whether a pass is running
func (r *Reconciler) InFlight() bool {
	return r.inFlight.Load()
}

func isOpen(s models.ProposalState) bool {
	switch s {
	case models.ProposalStatePending, models.ProposalStateActive, models.ProposalStateSucceeded, models.ProposalStateQueued:
		return true
	}
	return false
}
