package config

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/govsync/internal/domain/config"
)

// DefaultLogRange caps eth_getLogs spans when log_range is not configured
const DefaultLogRange uint64 = 10_000

// ResolveNetwork builds the runtime network for name. An empty name selects
// the only configured network, or none when several are configured.
func (f *GovsyncFile) ResolveNetwork(name string) (*config.Network, error) {
	if name == "" {
		if len(f.Networks) != 1 {
			return nil, nil
		}
		for only := range f.Networks {
			name = only
		}
	}

	section, ok := f.Networks[name]
	if !ok {
		return nil, fmt.Errorf("network '%s' not found in %s (available: %v)", name, FileName, f.NetworkNames())
	}
	if section.RPCURL == "" {
		return nil, fmt.Errorf("network '%s' has no rpc_url", name)
	}
	if !common.IsHexAddress(section.Governor) {
		return nil, fmt.Errorf("network '%s' has invalid governor address %q", name, section.Governor)
	}

	network := &config.Network{
		Name:         name,
		ChainID:      section.ChainID,
		RPCURL:       section.RPCURL,
		Governor:     common.HexToAddress(section.Governor),
		BlockTime:    section.BlockTime,
		TestControl:  section.TestControl,
		FromBlock:    section.FromBlock,
		VoteDecimals: section.VoteDecimals,
		BatchReads:   true,
		LogRange:     section.LogRange,
	}
	if section.BatchReads != nil {
		network.BatchReads = *section.BatchReads
	}
	if network.LogRange == 0 {
		network.LogRange = DefaultLogRange
	}
	return network, nil
}

// NetworkNames lists configured networks in sorted order
func (f *GovsyncFile) NetworkNames() []string {
	names := make([]string, 0, len(f.Networks))
	for name := range f.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
