package adapters

import (
	"github.com/google/wire"
	"github.com/trebuchet-org/govsync/internal/adapters/abi"
	"github.com/trebuchet-org/govsync/internal/adapters/anvil"
	"github.com/trebuchet-org/govsync/internal/adapters/blockchain"
	"github.com/trebuchet-org/govsync/internal/adapters/config"
	"github.com/trebuchet-org/govsync/internal/adapters/interactive"
	"github.com/trebuchet-org/govsync/internal/adapters/metrics"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// BlockchainSet provides the ledger connection and Governor readers
var BlockchainSet = wire.NewSet(
	blockchain.NewClient,
	wire.Bind(new(usecase.ChainReader), new(*blockchain.Client)),

	blockchain.NewGovernorReader,
	wire.Bind(new(usecase.GovernorReader), new(*blockchain.GovernorReader)),

	abi.NewEventDecoder,
	blockchain.NewEventSource,
	wire.Bind(new(usecase.EventSource), new(*blockchain.EventSource)),
)

// LedgerSet provides the test-ledger control client
var LedgerSet = wire.NewSet(
	anvil.NewLedger,
	wire.Bind(new(usecase.TestLedger), new(*anvil.Ledger)),
)

// MetricsSet provides the prometheus collector
var MetricsSet = wire.NewSet(
	metrics.NewCollector,
	wire.Bind(new(usecase.SyncMetrics), new(*metrics.Collector)),
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewSelectorAdapter,
	wire.Bind(new(usecase.ProposalSelector), new(*interactive.SelectorAdapter)),
)

// NetworksSet provides what listing networks needs, without dialing one
var NetworksSet = wire.NewSet(
	config.NewNetworkCatalog,
	wire.Bind(new(usecase.NetworkCatalog), new(*config.NetworkCatalog)),

	blockchain.NewChainProbe,
	wire.Bind(new(usecase.ChainProbe), new(*blockchain.ChainProbe)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	BlockchainSet,
	LedgerSet,
	MetricsSet,
	InteractiveSet,
)
