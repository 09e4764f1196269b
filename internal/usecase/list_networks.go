package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/govsync/internal/domain/config"
	"golang.org/x/sync/errgroup"
)

// probeTimeout bounds a single endpoint probe
const probeTimeout = 5 * time.Second

// ListNetworksParams contains parameters for listing networks
type ListNetworksParams struct {
	// Probe asks every endpoint for its chain id
	Probe bool
}

// ListNetworksResult contains the result of listing networks
type ListNetworksResult struct {
	Networks []NetworkStatus
}

// NetworkStatus represents the status of a network
type NetworkStatus struct {
	Name          string         `json:"name"`
	ChainID       uint64         `json:"chainId"`
	RemoteChainID uint64         `json:"remoteChainId,omitempty"`
	RPCURL        string         `json:"rpcUrl,omitempty"`
	Governor      common.Address `json:"governor"`
	TestControl   bool           `json:"testControl"`
	Current       bool           `json:"current"`
	Error         error          `json:"-"`
}

// ListNetworks is a use case for listing available networks
type ListNetworks struct {
	config  *config.RuntimeConfig
	catalog NetworkCatalog
	probe   ChainProbe
}

// NewListNetworks creates a new ListNetworks use case
func NewListNetworks(cfg *config.RuntimeConfig, catalog NetworkCatalog, probe ChainProbe) *ListNetworks {
	return &ListNetworks{
		config:  cfg,
		catalog: catalog,
		probe:   probe,
	}
}

// Run executes the use case
func (uc *ListNetworks) Run(ctx context.Context, params ListNetworksParams) (*ListNetworksResult, error) {
	names := uc.catalog.NetworkNames()
	networks := make([]NetworkStatus, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		status := &networks[i]
		status.Name = name
		status.Current = uc.config.Network != nil && uc.config.Network.Name == name

		network, err := uc.catalog.ResolveNetwork(name)
		if err != nil {
			status.Error = err
			continue
		}
		status.ChainID = network.ChainID
		status.RPCURL = network.RPCURL
		status.Governor = network.Governor
		status.TestControl = network.TestControl

		if !params.Probe || uc.probe == nil {
			continue
		}
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, probeTimeout)
			defer cancel()
			remote, err := uc.probe.ProbeChainID(pctx, network.RPCURL)
			if err != nil {
				status.Error = err
				return nil
			}
			status.RemoteChainID = remote
			if network.ChainID != 0 && remote != network.ChainID {
				status.Error = fmt.Errorf("chain ID mismatch: configured %d, endpoint reports %d", network.ChainID, remote)
			}
			return nil
		})
	}
	_ = g.Wait()

	return &ListNetworksResult{Networks: networks}, nil
}
