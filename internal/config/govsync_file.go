package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// FileName is the project configuration file looked up from the working directory
const FileName = "govsync.toml"

// GovsyncFile is the raw govsync.toml structure
type GovsyncFile struct {
	Networks map[string]NetworkSection `toml:"networks"`
	Sync     SyncSection               `toml:"sync"`
	Harness  HarnessSection            `toml:"harness"`
}

// NetworkSection is one [networks.<name>] table
type NetworkSection struct {
	RPCURL       string        `toml:"rpc_url"`
	Governor     string        `toml:"governor"`
	ChainID      uint64        `toml:"chain_id"`
	BlockTime    time.Duration `toml:"block_time"`
	TestControl  bool          `toml:"test_control"`
	FromBlock    uint64        `toml:"from_block"`
	VoteDecimals int32         `toml:"vote_decimals"`
	BatchReads   *bool         `toml:"batch_reads"`
	LogRange     uint64        `toml:"log_range"`
}

type SyncSection struct {
	HeightDebounce       time.Duration `toml:"height_debounce"`
	TimeRefresh          time.Duration `toml:"time_refresh"`
	BlockTimeResample    time.Duration `toml:"block_time_resample"`
	PollInterval         time.Duration `toml:"poll_interval"`
	ReconcileConcurrency int           `toml:"reconcile_concurrency"`
}

type HarnessSection struct {
	From            string   `toml:"from"`
	AllowedChainIDs []uint64 `toml:"allowed_chain_ids"`
}

// LoadGovsyncFile reads path, expanding ${VAR} references against the
// environment after loading .env and .env.local from the file's directory.
// A missing file yields an empty config.
func LoadGovsyncFile(path string) (*GovsyncFile, error) {
	loadDotEnv(filepath.Dir(path))

	cfg := &GovsyncFile{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	for name, network := range cfg.Networks {
		network.RPCURL = os.ExpandEnv(network.RPCURL)
		network.Governor = os.ExpandEnv(network.Governor)
		cfg.Networks[name] = network
	}
	cfg.Harness.From = os.ExpandEnv(cfg.Harness.From)

	return cfg, nil
}

// loadDotEnv loads .env files without overriding variables already set
func loadDotEnv(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		envFile := filepath.Join(dir, name)
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
		}
	}
}
