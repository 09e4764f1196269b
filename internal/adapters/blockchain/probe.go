package blockchain

import (
	"context"

	"github.com/trebuchet-org/govsync/internal/usecase"
)

// ChainProbe dials endpoints on demand to read their chain id
type ChainProbe struct{}

// NewChainProbe creates a new ChainProbe
func NewChainProbe() *ChainProbe {
	return &ChainProbe{}
}

// ProbeChainID connects to rpcURL and returns the chain id it serves
func (p *ChainProbe) ProbeChainID(ctx context.Context, rpcURL string) (uint64, error) {
	client, err := Dial(ctx, rpcURL)
	if err != nil {
		return 0, err
	}
	defer client.Close()
	return client.VerifyChainID(ctx, 0)
}

var _ usecase.ChainProbe = (*ChainProbe)(nil)
