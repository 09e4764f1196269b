package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

const namespace = "govsync"

// Collector records engine metrics in a prometheus registry
type Collector struct {
	registry *prometheus.Registry

	eventsIngested  *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	reconcilePasses prometheus.Counter
	reconcileChecks prometheus.Counter
	reconcileChange prometheus.Counter
	reconcileFail   prometheus.Counter
	reconcileMerged prometheus.Counter
	reconcileTime   prometheus.Histogram
	settledHeight   prometheus.Gauge
	blockTime       prometheus.Gauge
	proposalsKnown  prometheus.Gauge
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		eventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ingested_total",
			Help:      "Governor events applied to the proposal store.",
		}, []string{"kind"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Governor events that could not be applied.",
		}, []string{"kind", "reason"}),
		reconcilePasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "passes_total",
			Help:      "Completed reconciliation passes.",
		}),
		reconcileChecks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "checked_total",
			Help:      "Proposals checked during reconciliation.",
		}),
		reconcileChange: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "changed_total",
			Help:      "Proposals updated by reconciliation.",
		}),
		reconcileFail: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "failed_total",
			Help:      "Per-proposal reconciliation failures.",
		}),
		reconcileMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "coalesced_total",
			Help:      "Triggers dropped because a pass was already running.",
		}),
		reconcileTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Duration of reconciliation passes.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		settledHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "settled_height",
			Help:      "Latest ledger height that survived the debounce window.",
		}),
		blockTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "block_time_seconds",
			Help:      "Estimated seconds per ledger height.",
		}),
		proposalsKnown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "proposals_known",
			Help:      "Proposals held in the store.",
		}),
	}
	c.registry.MustRegister(
		c.eventsIngested, c.eventsDropped,
		c.reconcilePasses, c.reconcileChecks, c.reconcileChange, c.reconcileFail, c.reconcileMerged, c.reconcileTime,
		c.settledHeight, c.blockTime, c.proposalsKnown,
	)
	return c
}

// Registry exposes the registry for the /metrics handler
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) EventIngested(kind domain.EventKind) {
	c.eventsIngested.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) EventDropped(kind domain.EventKind, reason string) {
	c.eventsDropped.WithLabelValues(string(kind), reason).Inc()
}

func (c *Collector) ReconcileCompleted(report usecase.ReconcileReport, elapsed time.Duration) {
	c.reconcilePasses.Inc()
	c.reconcileChecks.Add(float64(report.Checked))
	c.reconcileChange.Add(float64(report.Changed))
	c.reconcileFail.Add(float64(report.Failed))
	c.reconcileTime.Observe(elapsed.Seconds())
}

func (c *Collector) ReconcileCoalesced() {
	c.reconcileMerged.Inc()
}

func (c *Collector) HeightSettled(height uint64) {
	c.settledHeight.Set(float64(height))
}

func (c *Collector) BlockTimeEstimated(d time.Duration) {
	c.blockTime.Set(d.Seconds())
}

func (c *Collector) ProposalsKnown(n int) {
	c.proposalsKnown.Set(float64(n))
}

// Ensure the adapter implements the interface
var _ usecase.SyncMetrics = (*Collector)(nil)
