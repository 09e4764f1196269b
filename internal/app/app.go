package app

import (
	"log/slog"

	"github.com/trebuchet-org/govsync/internal/adapters/blockchain"
	"github.com/trebuchet-org/govsync/internal/adapters/metrics"
	"github.com/trebuchet-org/govsync/internal/domain/config"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Shared dependencies
	Client   *blockchain.Client
	Metrics  *metrics.Collector
	Sessions *usecase.SessionFactory

	// Use cases
	ListProposals   *usecase.ListProposals
	ShowProposal    *usecase.ShowProposal
	WatchProposals  *usecase.WatchProposals
	AdvanceProposal *usecase.AdvanceProposal
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	client *blockchain.Client,
	collector *metrics.Collector,
	sessions *usecase.SessionFactory,
	listProposals *usecase.ListProposals,
	showProposal *usecase.ShowProposal,
	watchProposals *usecase.WatchProposals,
	advanceProposal *usecase.AdvanceProposal,
) (*App, error) {
	return &App{
		Config:          cfg,
		Log:             log,
		Client:          client,
		Metrics:         collector,
		Sessions:        sessions,
		ListProposals:   listProposals,
		ShowProposal:    showProposal,
		WatchProposals:  watchProposals,
		AdvanceProposal: advanceProposal,
	}, nil
}
