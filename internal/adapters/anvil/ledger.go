package anvil

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/trebuchet-org/govsync/internal/adapters/blockchain"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// Ledger drives an anvil (or hardhat) development node through its
// test-only RPC methods
type Ledger struct {
	rpc *rpc.Client
}

// NewLedger creates a ledger controller over an existing connection
func NewLedger(client *blockchain.Client) *Ledger {
	return &Ledger{rpc: client.RPC()}
}

// NewLedgerFromRPC creates a ledger controller over a raw RPC client
func NewLedgerFromRPC(rc *rpc.Client) *Ledger {
	return &Ledger{rpc: rc}
}

// ChainID returns eth_chainId
func (l *Ledger) ChainID(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := l.rpc.CallContext(ctx, &result, "eth_chainId"); err != nil {
		return 0, fmt.Errorf("eth_chainId: %w", err)
	}
	return uint64(result), nil
}

// Mine produces blocks immediately
func (l *Ledger) Mine(ctx context.Context, blocks uint64) error {
	if blocks == 0 {
		return nil
	}
	if err := l.rpc.CallContext(ctx, nil, "anvil_mine", hexutil.Uint64(blocks)); err != nil {
		return fmt.Errorf("anvil_mine %d: %w", blocks, err)
	}
	return nil
}

// IncreaseTime moves the timestamp of the next block forward
func (l *Ledger) IncreaseTime(ctx context.Context, seconds uint64) error {
	if seconds == 0 {
		return nil
	}
	var result interface{}
	if err := l.rpc.CallContext(ctx, &result, "evm_increaseTime", hexutil.Uint64(seconds)); err != nil {
		return fmt.Errorf("evm_increaseTime %d: %w", seconds, err)
	}
	return nil
}

// Snapshot takes a snapshot of the node state and returns its id
func (l *Ledger) Snapshot(ctx context.Context) (string, error) {
	var id string
	if err := l.rpc.CallContext(ctx, &id, "evm_snapshot"); err != nil {
		return "", fmt.Errorf("evm_snapshot: %w", err)
	}
	return id, nil
}

// Revert restores a snapshot. Snapshots can only be reverted once.
func (l *Ledger) Revert(ctx context.Context, snapshotID string) (bool, error) {
	var ok bool
	if err := l.rpc.CallContext(ctx, &ok, "evm_revert", snapshotID); err != nil {
		return false, fmt.Errorf("evm_revert %s: %w", snapshotID, err)
	}
	return ok, nil
}

type sendTxArgs struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// SendTransaction submits a transaction from an unlocked account
func (l *Ledger) SendTransaction(ctx context.Context, from, to common.Address, data []byte) (common.Hash, error) {
	var hash common.Hash
	args := sendTxArgs{From: from, To: to, Data: data}
	if err := l.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("eth_sendTransaction to %s: %w", to.Hex(), err)
	}
	return hash, nil
}

// Ensure the adapter implements the interface
var _ usecase.TestLedger = (*Ledger)(nil)
