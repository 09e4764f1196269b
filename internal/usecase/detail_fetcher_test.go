package usecase_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// MockGovernorReader is a mock implementation of GovernorReader
type MockGovernorReader struct {
	mock.Mock
}

func (m *MockGovernorReader) State(ctx context.Context, id models.ProposalID) (models.ProposalState, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.ProposalState), args.Error(1)
}

func (m *MockGovernorReader) ProposalSnapshot(ctx context.Context, id models.ProposalID) (uint64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockGovernorReader) ProposalDeadline(ctx context.Context, id models.ProposalID) (uint64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockGovernorReader) ProposalVotes(ctx context.Context, id models.ProposalID) (models.RawVotes, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.RawVotes), args.Error(1)
}

func (m *MockGovernorReader) ProposalEta(ctx context.Context, id models.ProposalID) (uint64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockGovernorReader) HasVoted(ctx context.Context, id models.ProposalID, viewer common.Address) (bool, error) {
	args := m.Called(ctx, id, viewer)
	return args.Bool(0), args.Error(1)
}

func (m *MockGovernorReader) VoteDecimals(ctx context.Context) (int32, error) {
	args := m.Called(ctx)
	return args.Get(0).(int32), args.Error(1)
}

// MockBatchGovernorReader adds single round trip reads
type MockBatchGovernorReader struct {
	MockGovernorReader
}

func (m *MockBatchGovernorReader) ReadProposal(ctx context.Context, id models.ProposalID, viewer *common.Address) (*models.ProposalSnapshot, error) {
	args := m.Called(ctx, id, viewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProposalSnapshot), args.Error(1)
}

func expectIndividualReads(m *MockGovernorReader, id models.ProposalID) {
	m.On("State", mock.Anything, id).Return(models.ProposalStateActive, nil)
	m.On("ProposalSnapshot", mock.Anything, id).Return(uint64(110), nil)
	m.On("ProposalDeadline", mock.Anything, id).Return(uint64(160), nil)
	m.On("ProposalVotes", mock.Anything, id).Return(models.RawVotes{
		For:     tokens(1500),
		Against: tokens(20),
		Abstain: big.NewInt(0),
	}, nil)
	m.On("ProposalEta", mock.Anything, id).Return(uint64(0), nil)
}

func TestDetailFetcherSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("reads every field concurrently", func(t *testing.T) {
		reader := &MockGovernorReader{}
		expectIndividualReads(reader, "7")
		reader.On("VoteDecimals", mock.Anything).Return(int32(18), nil).Once()

		fetcher := usecase.NewDetailFetcher(reader, true, 0, testLogger())
		patch, err := fetcher.Snapshot(ctx, "7")
		require.NoError(t, err)

		assert.Equal(t, models.ProposalStateActive, *patch.State)
		assert.Equal(t, uint64(110), *patch.SnapshotHeight)
		assert.Equal(t, uint64(160), *patch.DeadlineHeight)
		assert.True(t, decimal.NewFromInt(1500).Equal(patch.Votes.For))
		assert.True(t, decimal.NewFromInt(20).Equal(patch.Votes.Against))
		assert.Nil(t, patch.ViewerVote)
		reader.AssertNotCalled(t, "HasVoted", mock.Anything, mock.Anything, mock.Anything)

		// decimals are read once per fetcher
		_, err = fetcher.Snapshot(ctx, "7")
		require.NoError(t, err)
		reader.AssertNumberOfCalls(t, "VoteDecimals", 1)
	})

	t.Run("includes the viewer vote", func(t *testing.T) {
		reader := &MockGovernorReader{}
		expectIndividualReads(reader, "7")
		reader.On("VoteDecimals", mock.Anything).Return(int32(18), nil)
		reader.On("HasVoted", mock.Anything, models.ProposalID("7"), viewerAddr).Return(true, nil)

		fetcher := usecase.NewDetailFetcher(reader, false, 0, testLogger())
		fetcher.SetViewer(&viewerAddr)
		patch, err := fetcher.Snapshot(ctx, "7")
		require.NoError(t, err)
		require.NotNil(t, patch.ViewerVote)
		assert.Equal(t, viewerAddr, patch.ViewerVote.Viewer)
		assert.True(t, patch.ViewerVote.HasVoted)
	})

	t.Run("one failed read fails the snapshot", func(t *testing.T) {
		reader := &MockGovernorReader{}
		reader.On("State", mock.Anything, models.ProposalID("7")).Return(models.ProposalStateActive, nil).Maybe()
		reader.On("ProposalSnapshot", mock.Anything, models.ProposalID("7")).Return(uint64(110), nil).Maybe()
		reader.On("ProposalDeadline", mock.Anything, models.ProposalID("7")).Return(uint64(160), nil).Maybe()
		reader.On("ProposalVotes", mock.Anything, models.ProposalID("7")).Return(models.RawVotes{}, errors.New("timeout"))
		reader.On("ProposalEta", mock.Anything, models.ProposalID("7")).Return(uint64(0), nil).Maybe()

		fetcher := usecase.NewDetailFetcher(reader, false, 0, testLogger())
		patch, err := fetcher.Snapshot(ctx, "7")
		assert.Nil(t, patch)
		assert.ErrorIs(t, err, domain.ErrTransientRead)
		assert.Contains(t, err.Error(), "proposalVotes")
		reader.AssertNotCalled(t, "VoteDecimals", mock.Anything)
	})

	t.Run("uses the batch reader when enabled", func(t *testing.T) {
		reader := &MockBatchGovernorReader{}
		voted := false
		reader.On("ReadProposal", mock.Anything, models.ProposalID("7"), &viewerAddr).Return(&models.ProposalSnapshot{
			State:          models.ProposalStateQueued,
			SnapshotHeight: 110,
			DeadlineHeight: 160,
			Votes:          models.RawVotes{For: big.NewInt(2_500_000), Against: big.NewInt(0), Abstain: big.NewInt(0)},
			ETA:            1_700_003_600,
			HasVoted:       &voted,
		}, nil)
		reader.On("VoteDecimals", mock.Anything).Return(int32(6), nil)

		fetcher := usecase.NewDetailFetcher(reader, true, 0, testLogger())
		fetcher.SetViewer(&viewerAddr)
		patch, err := fetcher.Snapshot(ctx, "7")
		require.NoError(t, err)
		assert.Equal(t, models.ProposalStateQueued, *patch.State)
		assert.Equal(t, uint64(1_700_003_600), *patch.ETA)
		assert.True(t, decimal.RequireFromString("2.5").Equal(patch.Votes.For))
		require.NotNil(t, patch.ViewerVote)
		assert.False(t, patch.ViewerVote.HasVoted)
		reader.AssertNotCalled(t, "State", mock.Anything, mock.Anything)
	})

	t.Run("batch disabled falls back to individual reads", func(t *testing.T) {
		reader := &MockBatchGovernorReader{}
		expectIndividualReads(&reader.MockGovernorReader, "7")
		reader.On("VoteDecimals", mock.Anything).Return(int32(18), nil)

		fetcher := usecase.NewDetailFetcher(reader, false, 0, testLogger())
		_, err := fetcher.Snapshot(ctx, "7")
		require.NoError(t, err)
		reader.AssertNotCalled(t, "ReadProposal", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("falls back to configured decimals", func(t *testing.T) {
		reader := &MockGovernorReader{}
		expectIndividualReads(reader, "7")
		reader.On("VoteDecimals", mock.Anything).Return(int32(0), errors.New("execution reverted"))

		fetcher := usecase.NewDetailFetcher(reader, false, 16, testLogger())
		patch, err := fetcher.Snapshot(ctx, "7")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(150_000).Equal(patch.Votes.For))
	})

	t.Run("retries decimals after a failed read", func(t *testing.T) {
		reader := &MockBatchGovernorReader{}
		reader.On("ReadProposal", mock.Anything, models.ProposalID("7"), (*common.Address)(nil)).Return(&models.ProposalSnapshot{
			State: models.ProposalStateActive,
			Votes: models.RawVotes{For: big.NewInt(1_500_000), Against: big.NewInt(0), Abstain: big.NewInt(0)},
		}, nil)
		reader.On("VoteDecimals", mock.Anything).Return(int32(0), errors.New("timeout")).Once()
		reader.On("VoteDecimals", mock.Anything).Return(int32(6), nil).Once()

		fetcher := usecase.NewDetailFetcher(reader, true, 0, testLogger())
		first, err := fetcher.Snapshot(ctx, "7")
		require.NoError(t, err)
		assert.False(t, decimal.RequireFromString("1.5").Equal(first.Votes.For))

		second, err := fetcher.Snapshot(ctx, "7")
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("1.5").Equal(second.Votes.For))

		// resolved decimals stick
		_, err = fetcher.Snapshot(ctx, "7")
		require.NoError(t, err)
		reader.AssertNumberOfCalls(t, "VoteDecimals", 2)
	})
}

func TestDetailFetcherFetchState(t *testing.T) {
	reader := &MockGovernorReader{}
	reader.On("State", mock.Anything, models.ProposalID("1")).Return(models.ProposalStateSucceeded, nil)
	reader.On("State", mock.Anything, models.ProposalID("2")).Return(models.ProposalState(0), errors.New("boom"))

	fetcher := usecase.NewDetailFetcher(reader, false, 0, testLogger())
	state, err := fetcher.FetchState(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStateSucceeded, state)

	_, err = fetcher.FetchState(context.Background(), "2")
	assert.ErrorIs(t, err, domain.ErrTransientRead)
}
