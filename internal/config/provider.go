package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/govsync/internal/domain/config"
)

// ErrConfigNotFound is returned when no govsync.toml exists up the tree
var ErrConfigNotFound = errors.New(FileName + " not found")

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	configFile := v.GetString("config")
	if configFile == "" {
		found, err := FindConfigFile(v.GetString("project_root"))
		switch {
		case errors.Is(err, ErrConfigNotFound):
			found = filepath.Join(v.GetString("project_root"), FileName)
		case err != nil:
			return nil, err
		}
		configFile = found
	}

	file, err := LoadGovsyncFile(configFile)
	if err != nil {
		return nil, err
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:    filepath.Dir(configFile),
		ConfigFile:     configFile,
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		JSON:           v.GetBool("json"),
		Timeout:        v.GetDuration("timeout"),
		Sync:           syncSettings(v, file.Sync),
	}

	if viewer := v.GetString("viewer"); viewer != "" {
		if !common.IsHexAddress(viewer) {
			return nil, fmt.Errorf("invalid viewer address %q", viewer)
		}
		addr := common.HexToAddress(viewer)
		cfg.Viewer = &addr
	}

	cfg.Harness, err = harnessSettings(file.Harness)
	if err != nil {
		return nil, err
	}

	cfg.Network, err = file.ResolveNetwork(v.GetString("network"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve network: %w", err)
	}

	return cfg, nil
}

// syncSettings layers defaults, the file's [sync] table, then viper overrides
func syncSettings(v *viper.Viper, section SyncSection) config.SyncSettings {
	s := config.DefaultSyncSettings()
	if section.HeightDebounce > 0 {
		s.HeightDebounce = section.HeightDebounce
	}
	if section.TimeRefresh > 0 {
		s.TimeRefresh = section.TimeRefresh
	}
	if section.BlockTimeResample > 0 {
		s.BlockTimeResample = section.BlockTimeResample
	}
	if section.PollInterval > 0 {
		s.PollInterval = section.PollInterval
	}
	if section.ReconcileConcurrency > 0 {
		s.ReconcileConcurrency = section.ReconcileConcurrency
	}

	if v.IsSet("sync.height_debounce") {
		s.HeightDebounce = v.GetDuration("sync.height_debounce")
	}
	if v.IsSet("sync.poll_interval") {
		s.PollInterval = v.GetDuration("sync.poll_interval")
	}
	if v.IsSet("sync.reconcile_concurrency") {
		s.ReconcileConcurrency = v.GetInt("sync.reconcile_concurrency")
	}
	return s
}

func harnessSettings(section HarnessSection) (config.HarnessSettings, error) {
	h := config.HarnessSettings{
		AllowedChainIDs: section.AllowedChainIDs,
	}
	if len(h.AllowedChainIDs) == 0 {
		h.AllowedChainIDs = []uint64{31337, 1337}
	}
	if section.From != "" {
		if !common.IsHexAddress(section.From) {
			return h, fmt.Errorf("invalid harness sender address %q", section.From)
		}
		h.From = common.HexToAddress(section.From)
	}
	return h, nil
}

// FindConfigFile walks up from dir looking for govsync.toml
func FindConfigFile(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance bound to cmd's flags
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("GOVSYNC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	v.SetDefault("timeout", "0s")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("json", false)
	v.SetDefault("project_root", projectRoot)

	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil {
				panic(err)
			}
		})
	}

	return v
}
