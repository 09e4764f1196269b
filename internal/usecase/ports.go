package usecase

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/config"
	"github.com/trebuchet-org/govsync/internal/domain/models"
)

// ChainReader reads height and headers from the ledger.
// *ethclient.Client satisfies it.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
}

// GovernorReader performs the individual Governor view calls
type GovernorReader interface {
	State(ctx context.Context, id models.ProposalID) (models.ProposalState, error)
	ProposalSnapshot(ctx context.Context, id models.ProposalID) (uint64, error)
	ProposalDeadline(ctx context.Context, id models.ProposalID) (uint64, error)
	ProposalVotes(ctx context.Context, id models.ProposalID) (models.RawVotes, error)
	ProposalEta(ctx context.Context, id models.ProposalID) (uint64, error)
	HasVoted(ctx context.Context, id models.ProposalID, viewer common.Address) (bool, error)
	// VoteDecimals returns the decimals of the voting token
	VoteDecimals(ctx context.Context) (int32, error)
}

// BatchGovernorReader is implemented by readers that can read a whole
// proposal in a single round trip
type BatchGovernorReader interface {
	GovernorReader
	ReadProposal(ctx context.Context, id models.ProposalID, viewer *common.Address) (*models.ProposalSnapshot, error)
}

// EventSource retrieves and streams decoded Governor events
type EventSource interface {
	// FetchEvents returns events in [from, to] ordered by height and log index.
	// With no kinds given every known kind is returned.
	FetchEvents(ctx context.Context, from, to uint64, kinds ...domain.EventKind) ([]domain.ProposalEvent, error)
	// SubscribeEvents delivers ordered batches of events starting at from
	SubscribeEvents(ctx context.Context, from uint64, sink chan<- []domain.ProposalEvent) (ethereum.Subscription, error)
}

// TestLedger controls a development ledger
type TestLedger interface {
	ChainID(ctx context.Context) (uint64, error)
	Mine(ctx context.Context, blocks uint64) error
	IncreaseTime(ctx context.Context, seconds uint64) error
	Snapshot(ctx context.Context) (string, error)
	Revert(ctx context.Context, snapshotID string) (bool, error)
	// SendTransaction submits a transaction from an unlocked account
	SendTransaction(ctx context.Context, from, to common.Address, data []byte) (common.Hash, error)
}

// ChangePublisher forwards record changes to an external feed
type ChangePublisher interface {
	PublishChange(ctx context.Context, record *models.ProposalRecord) error
	Close() error
}

// NetworkCatalog lists the networks configured for the project
type NetworkCatalog interface {
	NetworkNames() []string
	ResolveNetwork(name string) (*config.Network, error)
}

// ChainProbe reads the chain id served by an endpoint
type ChainProbe interface {
	ProbeChainID(ctx context.Context, rpcURL string) (uint64, error)
}

// ProposalSelector handles interactive selection of proposals
type ProposalSelector interface {
	SelectProposal(ctx context.Context, proposals []*models.ProposalRecord, prompt string) (*models.ProposalRecord, error)
}

// SyncMetrics receives engine instrumentation
type SyncMetrics interface {
	EventIngested(kind domain.EventKind)
	EventDropped(kind domain.EventKind, reason string)
	ReconcileCompleted(report ReconcileReport, elapsed time.Duration)
	ReconcileCoalesced()
	HeightSettled(height uint64)
	BlockTimeEstimated(d time.Duration)
	ProposalsKnown(n int)
}

// NopMetrics discards all instrumentation
type NopMetrics struct{}

func (NopMetrics) EventIngested(domain.EventKind)                    {}
func (NopMetrics) EventDropped(domain.EventKind, string)             {}
func (NopMetrics) ReconcileCompleted(ReconcileReport, time.Duration) {}
func (NopMetrics) ReconcileCoalesced()                               {}
func (NopMetrics) HeightSettled(uint64)                              {}
func (NopMetrics) BlockTimeEstimated(time.Duration)                  {}
func (NopMetrics) ProposalsKnown(int)                                {}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}
