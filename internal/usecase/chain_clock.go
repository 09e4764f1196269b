package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/config"
)

// ChainClock tracks the ledger's height, time and block production rate.
//
// Height changes are debounced: listeners registered with OnSettledHeight
// only run once no new height has been seen for the quiet period. Time is
// the latest block timestamp, refreshed on a fixed interval. Read failures
// are logged and leave the previous values in place.
type ChainClock struct {
	reader   ChainReader
	settings config.SyncSettings
	fallback time.Duration
	metrics  SyncMetrics
	log      *slog.Logger

	mu        sync.RWMutex
	height    uint64
	settled   uint64
	now       uint64
	blockTime time.Duration

	listenersMu sync.Mutex
	listeners   []func(height uint64)

	debouncer *Debouncer
	cancel    context.CancelFunc
	done      chan struct{}
	stopped   atomic.Bool
}

// NewChainClock creates a clock. fallback is used as the block time estimate
// until (and whenever) sampling cannot produce a positive value.
func NewChainClock(reader ChainReader, settings config.SyncSettings, fallback time.Duration, metrics SyncMetrics, log *slog.Logger) *ChainClock {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	c := &ChainClock{
		reader:    reader,
		settings:  settings,
		fallback:  fallback,
		metrics:   metrics,
		log:       log.With("component", "ChainClock"),
		blockTime: fallback,
	}
	c.debouncer = NewDebouncer(settings.HeightDebounce, c.settle)
	return c
}

// Init performs the start-up reads. Only the height read is mandatory.
func (c *ChainClock) Init(ctx context.Context) error {
	height, err := c.reader.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("%w: block number: %v", domain.ErrTransientRead, err)
	}
	c.mu.Lock()
	c.height = height
	c.settled = height
	c.mu.Unlock()
	c.metrics.HeightSettled(height)

	c.RefreshTime(ctx)
	c.SampleBlockTime(ctx)
	return nil
}

// Run starts following the ledger in the background until Stop or ctx ends
func (c *ChainClock) Run(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		c.loop(ctx)
	}()
}

// Stop ends the background loop and drops any pending settle
func (c *ChainClock) Stop() {
	if c.stopped.Swap(true) {
		return
	}
	c.debouncer.Stop()
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}

func (c *ChainClock) loop(ctx context.Context) {
	heads := make(chan *types.Header, 16)
	var subErr <-chan error
	var poll <-chan time.Time

	sub, err := c.reader.SubscribeNewHead(ctx, heads)
	if err != nil {
		c.log.Debug("head subscription unavailable, polling", "error", err, "interval", c.settings.PollInterval)
		ticker := time.NewTicker(c.settings.PollInterval)
		defer ticker.Stop()
		poll = ticker.C
	} else {
		defer sub.Unsubscribe()
		subErr = sub.Err()
	}

	timeTicker := time.NewTicker(c.settings.TimeRefresh)
	defer timeTicker.Stop()
	resample := time.NewTicker(c.settings.BlockTimeResample)
	defer resample.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case h := <-heads:
			if h != nil && h.Number != nil {
				c.ObserveHeight(h.Number.Uint64())
			}
		case err := <-subErr:
			c.log.Warn("head subscription ended, falling back to polling", "error", err)
			subErr = nil
			ticker := time.NewTicker(c.settings.PollInterval)
			defer ticker.Stop()
			poll = ticker.C
		case <-poll:
			height, err := c.reader.BlockNumber(ctx)
			if err != nil {
				c.log.Warn("failed to read block number", "error", err)
				continue
			}
			c.ObserveHeight(height)
		case <-timeTicker.C:
			c.RefreshTime(ctx)
		case <-resample.C:
			c.SampleBlockTime(ctx)
		}
	}
}

// ObserveHeight records a new head and restarts the quiet period
func (c *ChainClock) ObserveHeight(height uint64) {
	c.mu.Lock()
	if height == c.height {
		c.mu.Unlock()
		return
	}
	c.height = height
	c.mu.Unlock()
	c.debouncer.Trigger()
}

func (c *ChainClock) settle() {
	if c.stopped.Load() {
		return
	}
	c.mu.Lock()
	height := c.height
	if height == c.settled {
		c.mu.Unlock()
		return
	}
	c.settled = height
	c.mu.Unlock()

	c.metrics.HeightSettled(height)
	c.log.Debug("height settled", "height", height)

	c.listenersMu.Lock()
	listeners := append([]func(uint64){}, c.listeners...)
	c.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(height)
	}
}

// OnSettledHeight registers fn to run after every debounced height change
func (c *ChainClock) OnSettledHeight(fn func(height uint64)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// RefreshTime reads the latest block timestamp
func (c *ChainClock) RefreshTime(ctx context.Context) {
	header, err := c.reader.HeaderByNumber(ctx, nil)
	if err != nil {
		c.log.Warn("failed to refresh ledger time", "error", err)
		return
	}
	c.mu.Lock()
	c.now = header.Time
	c.mu.Unlock()
}

// SampleBlockTime estimates seconds per height from the two latest headers
func (c *ChainClock) SampleBlockTime(ctx context.Context) {
	head, err := c.reader.BlockNumber(ctx)
	if err != nil {
		c.log.Warn("failed to sample block time", "error", err)
		return
	}
	estimate := c.fallback
	if head > 0 {
		latest, err := c.reader.HeaderByNumber(ctx, new(big.Int).SetUint64(head))
		if err != nil {
			c.log.Warn("failed to sample block time", "height", head, "error", err)
			return
		}
		prev, err := c.reader.HeaderByNumber(ctx, new(big.Int).SetUint64(head-1))
		if err != nil {
			c.log.Warn("failed to sample block time", "height", head-1, "error", err)
			return
		}
		if latest.Time > prev.Time {
			estimate = time.Duration(latest.Time-prev.Time) * time.Second
		}
	}

	c.mu.Lock()
	c.blockTime = estimate
	c.mu.Unlock()
	c.metrics.BlockTimeEstimated(estimate)
}

// CurrentHeight returns the latest observed height
func (c *ChainClock) CurrentHeight() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

// SettledHeight returns the latest height that survived the quiet period
func (c *ChainClock) SettledHeight() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settled
}

// CurrentTime returns the latest known ledger timestamp in seconds
func (c *ChainClock) CurrentTime() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// BlockTimeEstimate returns the current seconds-per-height estimate
func (c *ChainClock) BlockTimeEstimate() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blockTime
}

// EstimateTimeAt projects the ledger time at a future height
func (c *ChainClock) EstimateTimeAt(height uint64) time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	at := time.Unix(int64(c.now), 0)
	if height <= c.height {
		return at
	}
	return at.Add(time.Duration(height-c.height) * c.blockTime)
}
