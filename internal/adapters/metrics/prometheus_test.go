package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

func TestCollector_Events(t *testing.T) {
	c := NewCollector()

	c.EventIngested(domain.EventProposalCreated)
	c.EventIngested(domain.EventProposalCreated)
	c.EventIngested(domain.EventVoteCast)
	c.EventDropped(domain.EventVoteCast, "unknown_proposal")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.eventsIngested.WithLabelValues("ProposalCreated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsIngested.WithLabelValues("VoteCast")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsDropped.WithLabelValues("VoteCast", "unknown_proposal")))
}

func TestCollector_Reconcile(t *testing.T) {
	c := NewCollector()

	c.ReconcileCompleted(usecase.ReconcileReport{Checked: 4, Changed: 1, Failed: 2}, 30*time.Millisecond)
	c.ReconcileCompleted(usecase.ReconcileReport{Checked: 4}, 10*time.Millisecond)
	c.ReconcileCoalesced()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.reconcilePasses))
	assert.Equal(t, 8.0, testutil.ToFloat64(c.reconcileChecks))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reconcileChange))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.reconcileFail))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reconcileMerged))
}

func TestCollector_Gauges(t *testing.T) {
	c := NewCollector()

	c.HeightSettled(120)
	c.BlockTimeEstimated(12 * time.Second)
	c.ProposalsKnown(3)

	assert.Equal(t, 120.0, testutil.ToFloat64(c.settledHeight))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.blockTime))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.proposalsKnown))
}

func TestCollector_Registry(t *testing.T) {
	c := NewCollector()
	c.EventIngested(domain.EventProposalQueued)

	count, err := testutil.GatherAndCount(c.Registry(), "govsync_events_ingested_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
