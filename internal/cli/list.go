package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govsync/internal/cli/render"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var (
		states   []string
		proposer string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List Governor proposals",
		Long: `Load every proposal of the configured Governor and list them, newest first.

The list can be filtered by state and proposer.`,
		Example: `  # List all proposals
  govsync list

  # List proposals waiting in the timelock
  govsync list --state queued

  # List active and pending proposals as JSON
  govsync list --state active --state pending --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			params, err := listParams(states, proposer)
			if err != nil {
				return err
			}

			result, err := app.ListProposals.Run(cmd.Context(), params)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return render.NewProposalsRenderer(cmd.OutOrStdout(), colorEnabled(cmd)).Render(result)
		},
	}

	cmd.Flags().StringSliceVar(&states, "state", nil, "Filter by state (pending, active, succeeded, queued, executed, defeated, canceled, expired)")
	cmd.Flags().StringVar(&proposer, "proposer", "", "Filter by proposer address")

	return cmd
}

func listParams(states []string, proposer string) (usecase.ListProposalsParams, error) {
	var params usecase.ListProposalsParams
	for _, name := range states {
		state, err := models.ParseProposalState(name)
		if err != nil {
			return params, err
		}
		params.States = append(params.States, state)
	}
	if proposer != "" {
		if !common.IsHexAddress(proposer) {
			return params, fmt.Errorf("invalid proposer address: %s", proposer)
		}
		params.Proposer = proposer
	}
	return params, nil
}
