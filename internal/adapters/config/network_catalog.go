package config

import (
	"github.com/trebuchet-org/govsync/internal/config"
	domainconfig "github.com/trebuchet-org/govsync/internal/domain/config"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// NetworkCatalog serves the networks declared in govsync.toml
type NetworkCatalog struct {
	file *config.GovsyncFile
}

// NewNetworkCatalog loads the project file the runtime config points at
func NewNetworkCatalog(cfg *domainconfig.RuntimeConfig) (*NetworkCatalog, error) {
	file, err := config.LoadGovsyncFile(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	return &NetworkCatalog{file: file}, nil
}

// NetworkNames returns the configured names, sorted
func (c *NetworkCatalog) NetworkNames() []string {
	return c.file.NetworkNames()
}

// ResolveNetwork resolves a single named network
func (c *NetworkCatalog) ResolveNetwork(name string) (*domainconfig.Network, error) {
	return c.file.ResolveNetwork(name)
}

// Ensure the adapter implements the interface
var _ usecase.NetworkCatalog = (*NetworkCatalog)(nil)
