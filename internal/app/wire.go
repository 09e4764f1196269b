//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/govsync/internal/adapters"
	"github.com/trebuchet-org/govsync/internal/config"
	"github.com/trebuchet-org/govsync/internal/logging"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper, sink usecase.ProgressSink) (*App, func(), error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewSessionFactory,
		usecase.NewListProposals,
		usecase.NewShowProposal,
		usecase.NewWatchProposals,
		usecase.NewAdvanceProposal,

		// App
		NewApp,
	)
	return nil, nil, nil
}

// InitListNetworks wires the network listing, which must work before a
// network is selected
func InitListNetworks(v *viper.Viper) (*usecase.ListNetworks, error) {
	wire.Build(
		config.Provider,
		adapters.NetworksSet,
		usecase.NewListNetworks,
	)
	return nil, nil
}
