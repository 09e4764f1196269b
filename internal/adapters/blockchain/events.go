package blockchain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/trebuchet-org/govsync/internal/adapters/abi"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/config"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// LogClient is the subset of ethclient used for log retrieval
type LogClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// EventSource retrieves Governor events with eth_getLogs and follows new
// ones with eth_subscribe, polling when the endpoint has no subscriptions
type EventSource struct {
	client       LogClient
	address      common.Address
	decoder      *abi.EventDecoder
	logRange     uint64
	pollInterval time.Duration
	log          *slog.Logger
}

// NewEventSource creates an event source for the configured Governor
func NewEventSource(client *Client, cfg *config.RuntimeConfig, decoder *abi.EventDecoder, log *slog.Logger) (*EventSource, error) {
	if cfg.Network == nil {
		return nil, domain.ErrNetworkNotConfigured
	}
	return NewEventSourceWithClient(client, cfg.Network.Governor, cfg.Network.LogRange, cfg.Sync.PollInterval, decoder, log), nil
}

// NewEventSourceWithClient creates an event source over any LogClient
func NewEventSourceWithClient(client LogClient, governor common.Address, logRange uint64, pollInterval time.Duration, decoder *abi.EventDecoder, log *slog.Logger) *EventSource {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &EventSource{
		client:       client,
		address:      governor,
		decoder:      decoder,
		logRange:     logRange,
		pollInterval: pollInterval,
		log:          log.With("component", "EventSource"),
	}
}

func (s *EventSource) query(from uint64, to *uint64, kinds []domain.EventKind) ethereum.FilterQuery {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		Addresses: []common.Address{s.address},
		Topics:    [][]common.Hash{s.decoder.Topics(kinds...)},
	}
	if to != nil {
		q.ToBlock = new(big.Int).SetUint64(*to)
	}
	return q
}

// FetchEvents returns the decoded events in [from, to], in ledger order
func (s *EventSource) FetchEvents(ctx context.Context, from, to uint64, kinds ...domain.EventKind) ([]domain.ProposalEvent, error) {
	if from > to {
		return nil, nil
	}
	step := s.logRange
	if step == 0 {
		step = to - from + 1
	}

	var logs []types.Log
	for start := from; start <= to; start += step {
		end := min(start+step-1, to)
		chunk, err := s.client.FilterLogs(ctx, s.query(start, &end, kinds))
		if err != nil {
			return nil, fmt.Errorf("filter logs %d-%d: %w", start, end, err)
		}
		logs = append(logs, chunk...)
		if end == to {
			break
		}
	}
	sortLogs(logs)
	return s.decoder.DecodeLogs(logs), nil
}

// SubscribeEvents streams events from height from onwards. Batches are
// delivered in ledger order with no duplicates.
func (s *EventSource) SubscribeEvents(ctx context.Context, from uint64, sink chan<- []domain.ProposalEvent) (ethereum.Subscription, error) {
	f := &follower{source: s, sink: sink, next: from}

	logs := make(chan types.Log, 128)
	sub, err := s.client.SubscribeFilterLogs(ctx, s.query(from, nil, nil), logs)
	if err != nil {
		s.log.Debug("log subscription unavailable, polling", "error", err, "interval", s.pollInterval)
		return event.NewSubscription(func(quit <-chan struct{}) error {
			return f.poll(ctx, quit)
		}), nil
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		return f.follow(ctx, quit, sub, logs)
	}), nil
}

// follower tracks the position of one subscription
type follower struct {
	source *EventSource
	sink   chan<- []domain.ProposalEvent
	next   uint64 // first height not yet delivered in full
	seen   *logPosition
}

type logPosition struct {
	height uint64
	index  uint
}

func (p *logPosition) after(ev *domain.ProposalEvent) bool {
	return ev.Height > p.height || (ev.Height == p.height && ev.LogIndex > p.index)
}

func (f *follower) deliver(quit <-chan struct{}, events []domain.ProposalEvent) bool {
	if f.seen != nil {
		events = slices.DeleteFunc(events, func(ev domain.ProposalEvent) bool { return !f.seen.after(&ev) })
	}
	if len(events) == 0 {
		return true
	}
	last := events[len(events)-1]
	f.seen = &logPosition{height: last.Height, index: last.LogIndex}
	select {
	case f.sink <- events:
		return true
	case <-quit:
		return false
	}
}

// catchUp delivers everything between the cursor and the current head
func (f *follower) catchUp(ctx context.Context, quit <-chan struct{}) (bool, error) {
	head, err := f.source.client.BlockNumber(ctx)
	if err != nil {
		return true, err
	}
	if head < f.next {
		return true, nil
	}
	events, err := f.source.FetchEvents(ctx, f.next, head)
	if err != nil {
		return true, err
	}
	f.next = head + 1
	return f.deliver(quit, events), nil
}

func (f *follower) poll(ctx context.Context, quit <-chan struct{}) error {
	ticker := time.NewTicker(f.source.pollInterval)
	defer ticker.Stop()
	for {
		ok, err := f.catchUp(ctx, quit)
		if err != nil {
			f.source.log.Warn("failed to poll governor logs", "from", f.next, "error", err)
		}
		if !ok {
			return nil
		}
		select {
		case <-quit:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (f *follower) follow(ctx context.Context, quit <-chan struct{}, sub ethereum.Subscription, logs <-chan types.Log) error {
	// the live subscription only sees new blocks; fill the gap first
	ok, err := f.catchUp(ctx, quit)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	for {
		select {
		case <-quit:
			return nil
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case lg := <-logs:
			batch := []types.Log{lg}
			// drain whatever else is already buffered
		drain:
			for {
				select {
				case more := <-logs:
					batch = append(batch, more)
				default:
					break drain
				}
			}
			sortLogs(batch)
			if !f.deliver(quit, f.source.decoder.DecodeLogs(batch)) {
				return nil
			}
		}
	}
}

func sortLogs(logs []types.Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})
}

// Ensure the adapter implements the interface
var _ usecase.EventSource = (*EventSource)(nil)
