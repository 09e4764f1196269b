package config

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	ConfigFile  string

	// Context settings
	Network *Network // nil if not specified
	Viewer  *common.Address

	// Execution settings
	Debug          bool
	NonInteractive bool
	JSON           bool // Output in JSON format
	Timeout        time.Duration

	Sync    SyncSettings
	Harness HarnessSettings
}

// Network represents a configured ledger endpoint and its Governor
type Network struct {
	Name     string         `json:"name"`
	ChainID  uint64         `json:"chainId"`
	RPCURL   string         `json:"rpcUrl"`
	Governor common.Address `json:"governor"`

	// BlockTime is the fallback seconds-per-height when sampling fails
	BlockTime time.Duration `json:"blockTime"`

	// TestControl marks the ledger as safe for the advancement harness
	TestControl bool `json:"testControl"`

	// FromBlock is where the cold-start scan begins
	FromBlock uint64 `json:"fromBlock"`

	// VoteDecimals is used when the voting token's decimals cannot be read
	VoteDecimals int32 `json:"voteDecimals"`

	// BatchReads enables JSON-RPC batching for proposal snapshots
	BatchReads bool `json:"batchReads"`

	// LogRange caps the block span of a single eth_getLogs request
	LogRange uint64 `json:"logRange"`
}

// SyncSettings tunes the synchronization engine
type SyncSettings struct {
	HeightDebounce       time.Duration
	TimeRefresh          time.Duration
	BlockTimeResample    time.Duration
	PollInterval         time.Duration
	ReconcileConcurrency int
}

// HarnessSettings configures the lifecycle advancement harness
type HarnessSettings struct {
	// From is the unlocked account used to submit queue/execute
	From            common.Address
	AllowedChainIDs []uint64
}

// DefaultSyncSettings returns the engine defaults
func DefaultSyncSettings() SyncSettings {
	return SyncSettings{
		HeightDebounce:       750 * time.Millisecond,
		TimeRefresh:          10 * time.Second,
		BlockTimeResample:    5 * time.Minute,
		PollInterval:         2 * time.Second,
		ReconcileConcurrency: 8,
	}
}

// DefaultBlockTime returns the documented fallback block time for a chain
func DefaultBlockTime(chainID uint64) time.Duration {
	switch chainID {
	case 31337, 1337:
		return time.Second
	case 1, 11155111, 17000:
		return 12 * time.Second
	case 10, 8453:
		return 2 * time.Second
	case 42161:
		return 250 * time.Millisecond
	case 137:
		return 2 * time.Second
	case 42220, 44787:
		return 5 * time.Second
	default:
		return 12 * time.Second
	}
}
