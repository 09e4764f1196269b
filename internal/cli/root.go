package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/govsync/internal/adapters/progress"
	"github.com/trebuchet-org/govsync/internal/app"
	"github.com/trebuchet-org/govsync/internal/config"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
	// viperKey holds the viper instance the app was built from
	viperKey contextKey = "viper"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var release func()

	rootCmd := &cobra.Command{
		Use:   "govsync",
		Short: "Live view of Governor proposals",
		Long: `govsync keeps an up-to-date view of the proposals of an OpenZeppelin
Governor contract by following its events and reconciling state as the
ledger advances. On local test ledgers it can also drive proposals through
their lifecycle.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for commands that do not need a connected network
			switch cmd.Name() {
			case "version", "help", "completion", "networks":
				return nil
			}

			v := config.SetupViper("", cmd)

			appInstance, cleanup, err := app.InitApp(v, newProgressSink(cmd, v))
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			ctx = context.WithValue(ctx, viperKey, v)

			cancel := func() {}
			if appInstance.Config.Timeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
			}
			release = func() {
				cancel()
				cleanup()
			}

			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if release != nil {
				release()
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Path to govsync.toml (defaults to the nearest one up the tree)")
	rootCmd.PersistentFlags().StringP("network", "n", "", "Network to use, as named in govsync.toml")
	rootCmd.PersistentFlags().String("viewer", "", "Account whose hasVoted flag is tracked")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Abort after this long (0 disables)")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "testing",
		Title: "Test Ledger Commands",
	})

	listCmd := NewListCmd()
	listCmd.GroupID = "main"
	rootCmd.AddCommand(listCmd)

	showCmd := NewShowCmd()
	showCmd.GroupID = "main"
	rootCmd.AddCommand(showCmd)

	executableCmd := NewExecutableCmd()
	executableCmd.GroupID = "main"
	rootCmd.AddCommand(executableCmd)

	watchCmd := NewWatchCmd()
	watchCmd.GroupID = "main"
	rootCmd.AddCommand(watchCmd)

	advanceCmd := NewAdvanceCmd()
	advanceCmd.GroupID = "testing"
	rootCmd.AddCommand(advanceCmd)

	networksCmd := NewNetworksCmd()
	networksCmd.GroupID = "main"
	rootCmd.AddCommand(networksCmd)

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// newProgressSink picks the spinner for terminals and a no-op sink for
// machine-readable output, non-interactive runs and the live watch table
func newProgressSink(cmd *cobra.Command, v *viper.Viper) usecase.ProgressSink {
	if v.GetBool("json") || v.GetBool("non_interactive") {
		return progress.NewNopSink()
	}
	if cmd.Name() == "watch" && !v.GetBool("no_tui") {
		return progress.NewNopSink()
	}
	return progress.NewSpinnerSink()
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance, ok := cmd.Context().Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return appInstance, nil
}

// getViper retrieves the viper instance the app was built from
func getViper(cmd *cobra.Command) (*viper.Viper, error) {
	v, ok := cmd.Context().Value(viperKey).(*viper.Viper)
	if !ok || v == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return v, nil
}
