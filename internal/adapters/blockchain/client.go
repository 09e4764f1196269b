package blockchain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/config"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// Client is an ethclient that also exposes the raw RPC connection for
// batching and node-specific methods
type Client struct {
	*ethclient.Client
	rpc *rpc.Client
}

// Dial connects to rpcURL. HTTP endpoints connect lazily; websocket and IPC
// endpoints connect immediately.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	rc, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	return &Client{Client: ethclient.NewClient(rc), rpc: rc}, nil
}

// NewClient dials the configured network
func NewClient(cfg *config.RuntimeConfig) (*Client, func(), error) {
	if cfg.Network == nil {
		return nil, nil, domain.ErrNetworkNotConfigured
	}
	client, err := Dial(context.Background(), cfg.Network.RPCURL)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// RPC returns the underlying JSON-RPC client
func (c *Client) RPC() *rpc.Client {
	return c.rpc
}

// VerifyChainID checks that the endpoint serves the expected chain.
// An expected id of zero accepts any chain and returns the one found.
func (c *Client) VerifyChainID(ctx context.Context, expected uint64) (uint64, error) {
	id, err := c.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if expected != 0 && id.Uint64() != expected {
		return 0, fmt.Errorf("chain ID mismatch: expected %d, got %d", expected, id.Uint64())
	}
	return id.Uint64(), nil
}

// Ensure the adapter implements the interface
var _ usecase.ChainReader = (*Client)(nil)
