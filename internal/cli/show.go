package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govsync/internal/cli/render"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show [proposal-id]",
		Short: "Show a proposal in detail",
		Long: `Show the full record of a proposal: its description, actions, vote
tallies and timelock status.

The id may be abbreviated to any unique prefix. Without an id an interactive
picker is shown.

Examples:
  govsync show 8810252460096354861653915192573429042504059193593901806912831532700912583012
  govsync show 881025
  govsync show 881025 --format yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				format = "json"
			}

			var params usecase.ShowProposalParams
			if len(args) == 1 {
				params.ID = models.ProposalID(args[0])
			}

			result, err := app.ShowProposal.Run(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("failed to resolve proposal: %w", err)
			}

			switch format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), result)
			case "yaml":
				return writeYAML(cmd.OutOrStdout(), result)
			case "table", "":
				return render.NewProposalRenderer(cmd.OutOrStdout(), colorEnabled(cmd)).Render(result)
			default:
				return fmt.Errorf("unknown format %q (valid: table, json, yaml)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json, yaml)")

	return cmd
}
