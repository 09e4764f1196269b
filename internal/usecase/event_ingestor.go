package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/samber/lo"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/models"
)

// DescriptionSeparator splits a proposal description into title and body
const DescriptionSeparator = ":"

// SplitDescription splits on the first separator and trims both halves.
// A description without separator is all title.
func SplitDescription(description string) (title, body string) {
	idx := strings.Index(description, DescriptionSeparator)
	if idx < 0 {
		return strings.TrimSpace(description), ""
	}
	return strings.TrimSpace(description[:idx]), strings.TrimSpace(description[idx+len(DescriptionSeparator):])
}

type eventHandler func(ctx context.Context, ev *domain.ProposalEvent) error

// EventIngestor turns Governor events into store upserts
type EventIngestor struct {
	store   *ProposalStore
	fetcher *DetailFetcher
	chain   ChainReader
	metrics SyncMetrics
	log     *slog.Logger

	handlers map[domain.EventKind]eventHandler
}

// NewEventIngestor creates an ingestor writing into store
func NewEventIngestor(store *ProposalStore, fetcher *DetailFetcher, chain ChainReader, metrics SyncMetrics, log *slog.Logger) *EventIngestor {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	i := &EventIngestor{
		store:   store,
		fetcher: fetcher,
		chain:   chain,
		metrics: metrics,
		log:     log.With("component", "EventIngestor"),
	}
	i.handlers = map[domain.EventKind]eventHandler{
		domain.EventProposalCreated:  i.onCreated,
		domain.EventVoteCast:         i.onRefresh,
		domain.EventProposalQueued:   i.onQueued,
		domain.EventProposalExecuted: i.onExecuted,
		domain.EventProposalCanceled: i.onCanceled,
	}
	return i
}

// HandleBatch applies events in arrival order. Failures are logged and
// counted, never returned.
func (i *EventIngestor) HandleBatch(ctx context.Context, events []domain.ProposalEvent) {
	for idx := range events {
		ev := &events[idx]
		if err := i.Apply(ctx, ev); err != nil {
			i.report(ev, err)
		}
	}
}

// Apply handles a single event and returns what went wrong
func (i *EventIngestor) Apply(ctx context.Context, ev *domain.ProposalEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	handler, ok := i.handlers[ev.Kind]
	if !ok {
		return fmt.Errorf("%w: no handler for %s", domain.ErrMalformedEvent, ev.Kind)
	}
	if err := handler(ctx, ev); err != nil {
		return err
	}
	i.metrics.EventIngested(ev.Kind)
	return nil
}

func (i *EventIngestor) report(ev *domain.ProposalEvent, err error) {
	var kind domain.EventKind
	attrs := []any{"error", err}
	if ev != nil {
		kind = ev.Kind
		attrs = append(attrs, "event", ev.String())
	}
	switch {
	case errors.Is(err, domain.ErrMalformedEvent):
		i.metrics.EventDropped(kind, "malformed")
		i.log.Warn("dropping malformed event", attrs...)
	case errors.Is(err, domain.ErrUnknownProposal):
		i.metrics.EventDropped(kind, "unknown_proposal")
		i.log.Warn("dropping event for unknown proposal", attrs...)
	case errors.Is(err, domain.ErrStaleSnapshot):
		i.metrics.EventDropped(kind, "stale")
		i.log.Debug("ignoring stale snapshot", attrs...)
	default:
		i.metrics.EventDropped(kind, "read_failure")
		i.log.Warn("failed to apply event", attrs...)
	}
}

func (i *EventIngestor) onCreated(ctx context.Context, ev *domain.ProposalEvent) error {
	title, body := SplitDescription(ev.Description)
	actions := models.ProposalActions{
		Targets:    append([]common.Address(nil), ev.Targets...),
		CallValues: append([]*big.Int(nil), ev.Values...),
		CallData:   lo.Map(ev.Calldatas, func(d []byte, _ int) hexutil.Bytes { return hexutil.Bytes(d) }),
	}

	patch := &models.ProposalPatch{
		Proposer:        lo.ToPtr(ev.Proposer),
		Title:           lo.ToPtr(title),
		Body:            lo.ToPtr(body),
		DescriptionHash: lo.ToPtr(crypto.Keccak256Hash([]byte(ev.Description))),
		Actions:         &actions,
		SnapshotHeight:  lo.ToPtr(ev.VoteStart),
		DeadlineHeight:  lo.ToPtr(ev.VoteEnd),
		CreatedHeight:   lo.ToPtr(ev.Height),
		CreatedLogIndex: lo.ToPtr(ev.LogIndex),
	}

	snap, snapErr := i.fetcher.Snapshot(ctx, ev.ProposalID)
	if snapErr == nil {
		patch = patch.Merge(snap)
	}

	existed := i.store.Has(ev.ProposalID)
	if _, err := i.store.Upsert(ev.ProposalID, patch); err != nil {
		return err
	}
	if !existed {
		known := i.store.Len()
		i.metrics.ProposalsKnown(known)
		i.log.Debug("proposal discovered", "proposal", ev.ProposalID.Short(), "title", title, "known", known)
	}
	return snapErr
}

func (i *EventIngestor) onRefresh(ctx context.Context, ev *domain.ProposalEvent) error {
	return i.refresh(ctx, ev, nil)
}

func (i *EventIngestor) onQueued(ctx context.Context, ev *domain.ProposalEvent) error {
	return i.refresh(ctx, ev, &models.ProposalPatch{
		State: lo.ToPtr(models.ProposalStateQueued),
		ETA:   lo.ToPtr(ev.ETA),
	})
}

func (i *EventIngestor) onCanceled(ctx context.Context, ev *domain.ProposalEvent) error {
	return i.refresh(ctx, ev, &models.ProposalPatch{
		State: lo.ToPtr(models.ProposalStateCanceled),
	})
}

func (i *EventIngestor) onExecuted(ctx context.Context, ev *domain.ProposalEvent) error {
	if !i.store.Has(ev.ProposalID) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownProposal, ev.ProposalID)
	}
	base := &models.ProposalPatch{State: lo.ToPtr(models.ProposalStateExecuted)}

	header, err := i.chain.HeaderByNumber(ctx, new(big.Int).SetUint64(ev.Height))
	if err != nil {
		if _, uerr := i.store.Upsert(ev.ProposalID, base); uerr != nil {
			return uerr
		}
		return fmt.Errorf("%w: header %d: %v", domain.ErrTransientRead, ev.Height, err)
	}
	base.ExecutedAt = lo.ToPtr(header.Time)
	return i.refresh(ctx, ev, base)
}

// refresh re-reads the proposal and merges it over base. When the read
// fails, base alone is still applied.
func (i *EventIngestor) refresh(ctx context.Context, ev *domain.ProposalEvent, base *models.ProposalPatch) error {
	if !i.store.Has(ev.ProposalID) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownProposal, ev.ProposalID)
	}

	snap, snapErr := i.fetcher.Snapshot(ctx, ev.ProposalID)
	var patch *models.ProposalPatch
	switch {
	case snapErr != nil && base == nil:
		return snapErr
	case snapErr != nil:
		patch = base
	case base == nil:
		patch = snap
	default:
		patch = base.Merge(snap)
	}

	if _, err := i.store.Upsert(ev.ProposalID, patch); err != nil {
		return err
	}
	return snapErr
}
