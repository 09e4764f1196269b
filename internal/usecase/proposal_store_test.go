package usecase_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

func TestProposalStore(t *testing.T) {
	t.Run("creates and notifies with a copy", func(t *testing.T) {
		store := usecase.NewProposalStore(testLogger())
		var seen []*models.ProposalRecord
		store.OnChange(func(r *models.ProposalRecord) { seen = append(seen, r) })

		changed, err := store.Upsert("1", &models.ProposalPatch{
			Title: lo.ToPtr("Store 42"),
			State: lo.ToPtr(models.ProposalStatePending),
		})
		require.NoError(t, err)
		assert.True(t, changed)
		require.Len(t, seen, 1)
		assert.Equal(t, "Store 42", seen[0].Title)

		seen[0].Title = "mutated"
		got, err := store.Get("1")
		require.NoError(t, err)
		assert.Equal(t, "Store 42", got.Title)
	})

	t.Run("identical patch is a no-op", func(t *testing.T) {
		store := usecase.NewProposalStore(testLogger())
		calls := 0
		store.OnChange(func(*models.ProposalRecord) { calls++ })

		patch := &models.ProposalPatch{
			State: lo.ToPtr(models.ProposalStateActive),
			Votes: &models.VoteTally{For: decimal.NewFromInt(3), Against: decimal.Zero, Abstain: decimal.Zero},
		}
		_, err := store.Upsert("1", patch)
		require.NoError(t, err)
		changed, err := store.Upsert("1", patch)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, 1, calls)
	})

	t.Run("absent fields are left untouched", func(t *testing.T) {
		store := usecase.NewProposalStore(testLogger())
		_, err := store.Upsert("1", &models.ProposalPatch{Title: lo.ToPtr("Keep me"), DeadlineHeight: lo.ToPtr(uint64(60))})
		require.NoError(t, err)
		_, err = store.Upsert("1", &models.ProposalPatch{State: lo.ToPtr(models.ProposalStateActive)})
		require.NoError(t, err)

		got, err := store.Get("1")
		require.NoError(t, err)
		assert.Equal(t, "Keep me", got.Title)
		assert.Equal(t, uint64(60), got.DeadlineHeight)
		assert.Equal(t, models.ProposalStateActive, got.State)
	})

	t.Run("disjoint patches commute", func(t *testing.T) {
		votes := &models.ProposalPatch{Votes: &models.VoteTally{For: decimal.NewFromInt(7), Against: decimal.Zero, Abstain: decimal.NewFromInt(1)}}
		eta := &models.ProposalPatch{ETA: lo.ToPtr(uint64(1_700_000_900))}

		apply := func(patches ...*models.ProposalPatch) *models.ProposalRecord {
			store := usecase.NewProposalStore(testLogger())
			_, err := store.Upsert("1", &models.ProposalPatch{
				State:         lo.ToPtr(models.ProposalStateQueued),
				CreatedHeight: lo.ToPtr(uint64(10)),
			})
			require.NoError(t, err)
			for _, p := range patches {
				_, err := store.Upsert("1", p)
				require.NoError(t, err)
			}
			got, err := store.Get("1")
			require.NoError(t, err)
			return got
		}

		forward := apply(votes, eta)
		reverse := apply(eta, votes)
		assert.True(t, forward.Equal(reverse))
		assert.Equal(t, uint64(1_700_000_900), reverse.ETA)
		assert.True(t, decimal.NewFromInt(7).Equal(reverse.Votes.For))
	})

	t.Run("rejects backwards transitions", func(t *testing.T) {
		store := usecase.NewProposalStore(testLogger())
		_, err := store.Upsert("1", &models.ProposalPatch{State: lo.ToPtr(models.ProposalStateQueued), ETA: lo.ToPtr(uint64(500))})
		require.NoError(t, err)

		changed, err := store.Upsert("1", &models.ProposalPatch{
			State: lo.ToPtr(models.ProposalStateActive),
			Title: lo.ToPtr("late snapshot"),
		})
		assert.False(t, changed)
		assert.ErrorIs(t, err, domain.ErrStaleSnapshot)
		var terr domain.TransitionErr
		require.True(t, errors.As(err, &terr))
		assert.Equal(t, models.ProposalStateQueued, terr.From)

		got, _ := store.Get("1")
		assert.Equal(t, models.ProposalStateQueued, got.State)
		assert.Empty(t, got.Title)
	})

	t.Run("canceled is not reachable from queued", func(t *testing.T) {
		store := usecase.NewProposalStore(testLogger())
		_, err := store.Upsert("1", &models.ProposalPatch{State: lo.ToPtr(models.ProposalStateQueued)})
		require.NoError(t, err)
		_, err = store.Upsert("1", &models.ProposalPatch{State: lo.ToPtr(models.ProposalStateCanceled)})
		assert.ErrorIs(t, err, domain.ErrStaleSnapshot)
	})

	t.Run("eta only survives while queued", func(t *testing.T) {
		store := usecase.NewProposalStore(testLogger())
		_, err := store.Upsert("1", &models.ProposalPatch{State: lo.ToPtr(models.ProposalStateActive), ETA: lo.ToPtr(uint64(99))})
		require.NoError(t, err)
		got, _ := store.Get("1")
		assert.Zero(t, got.ETA)

		_, err = store.Upsert("1", &models.ProposalPatch{State: lo.ToPtr(models.ProposalStateQueued), ETA: lo.ToPtr(uint64(99))})
		require.NoError(t, err)
		got, _ = store.Get("1")
		assert.Equal(t, uint64(99), got.ETA)

		_, err = store.Upsert("1", &models.ProposalPatch{State: lo.ToPtr(models.ProposalStateExecuted), ExecutedAt: lo.ToPtr(uint64(120))})
		require.NoError(t, err)
		got, _ = store.Get("1")
		assert.Zero(t, got.ETA)
		assert.Equal(t, uint64(120), got.ExecutedAt)
	})

	t.Run("executedAt is written once", func(t *testing.T) {
		store := usecase.NewProposalStore(testLogger())
		_, err := store.Upsert("1", &models.ProposalPatch{State: lo.ToPtr(models.ProposalStateExecuted), ExecutedAt: lo.ToPtr(uint64(120))})
		require.NoError(t, err)
		changed, err := store.Upsert("1", &models.ProposalPatch{ExecutedAt: lo.ToPtr(uint64(500))})
		require.NoError(t, err)
		assert.False(t, changed)
		got, _ := store.Get("1")
		assert.Equal(t, uint64(120), got.ExecutedAt)
	})

	t.Run("creation position is fixed", func(t *testing.T) {
		store := usecase.NewProposalStore(testLogger())
		_, err := store.Upsert("1", &models.ProposalPatch{CreatedHeight: lo.ToPtr(uint64(10)), CreatedLogIndex: lo.ToPtr(uint(2))})
		require.NoError(t, err)
		_, err = store.Upsert("1", &models.ProposalPatch{CreatedHeight: lo.ToPtr(uint64(99))})
		require.NoError(t, err)
		got, _ := store.Get("1")
		assert.Equal(t, uint64(10), got.CreatedHeight)
		assert.Equal(t, uint(2), got.CreatedLogIndex)
	})

	t.Run("mismatched actions are malformed", func(t *testing.T) {
		store := usecase.NewProposalStore(testLogger())
		_, err := store.Upsert("1", &models.ProposalPatch{Actions: &models.ProposalActions{
			Targets:    []common.Address{targetAddr},
			CallValues: []*big.Int{big.NewInt(0), big.NewInt(1)},
			CallData:   []hexutil.Bytes{{}},
		}})
		assert.ErrorIs(t, err, domain.ErrMalformedEvent)
		assert.False(t, store.Has("1"))
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		store := usecase.NewProposalStore(testLogger())
		_, err := store.Upsert("", nil)
		assert.ErrorIs(t, err, domain.ErrMalformedEvent)
	})

	t.Run("get unknown", func(t *testing.T) {
		store := usecase.NewProposalStore(testLogger())
		_, err := store.Get("404")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("lists newest creation first", func(t *testing.T) {
		store := usecase.NewProposalStore(testLogger())
		for _, p := range []struct {
			id     models.ProposalID
			height uint64
			index  uint
		}{{"a", 10, 0}, {"b", 30, 1}, {"c", 30, 4}, {"d", 20, 0}} {
			_, err := store.Upsert(p.id, &models.ProposalPatch{CreatedHeight: lo.ToPtr(p.height), CreatedLogIndex: lo.ToPtr(p.index)})
			require.NoError(t, err)
		}
		ids := lo.Map(store.All(), func(r *models.ProposalRecord, _ int) models.ProposalID { return r.ID })
		assert.Equal(t, []models.ProposalID{"c", "b", "d", "a"}, ids)
		assert.Equal(t, 4, store.Len())
	})

	t.Run("reset viewer clears vote flags", func(t *testing.T) {
		store := usecase.NewProposalStore(testLogger())
		_, err := store.Upsert("1", &models.ProposalPatch{ViewerVote: &models.ViewerVote{Viewer: viewerAddr, HasVoted: true}})
		require.NoError(t, err)
		_, err = store.Upsert("2", &models.ProposalPatch{Title: lo.ToPtr("no vote info")})
		require.NoError(t, err)

		var notified []models.ProposalID
		store.OnChange(func(r *models.ProposalRecord) { notified = append(notified, r.ID) })
		store.ResetViewer()

		assert.Equal(t, []models.ProposalID{"1"}, notified)
		got, _ := store.Get("1")
		_, known := got.HasVoted(viewerAddr)
		assert.False(t, known)
	})

	t.Run("unsubscribed listeners stop firing", func(t *testing.T) {
		store := usecase.NewProposalStore(testLogger())
		calls := 0
		off := store.OnChange(func(*models.ProposalRecord) { calls++ })
		_, _ = store.Upsert("1", &models.ProposalPatch{Title: lo.ToPtr("a")})
		off()
		_, _ = store.Upsert("1", &models.ProposalPatch{Title: lo.ToPtr("b")})
		assert.Equal(t, 1, calls)
	})
}
