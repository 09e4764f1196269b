package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govsync/internal/cli/render"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// errAdvanceFailed signals a failed run whose details were already printed
var errAdvanceFailed = errors.New("advance failed")

// NewAdvanceCmd creates the advance command
func NewAdvanceCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "advance [proposal-id]",
		Short: "Drive a proposal through its lifecycle on a test ledger",
		Long: `Advance a proposal to the target state on a local test ledger by mining
blocks, moving the ledger clock and submitting queue/execute.

Only networks marked test_control = true whose chain id is listed in
[harness] allowed_chain_ids are accepted. If a run fails part way, the
ledger is reverted to where it started.`,
		Example: `  # Open voting on a pending proposal
  govsync advance 881025 --to active

  # Queue and execute a succeeded proposal
  govsync advance 881025 --to executed`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			targetState, err := parseAdvanceTarget(target)
			if err != nil {
				return err
			}

			var params usecase.ShowProposalParams
			if len(args) == 1 {
				params.ID = models.ProposalID(args[0])
			}
			detail, err := app.ShowProposal.Run(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("failed to resolve proposal: %w", err)
			}

			result := app.AdvanceProposal.Run(cmd.Context(), usecase.AdvanceProposalParams{
				Proposal: detail.Proposal,
				Target:   targetState,
			})

			if app.Config.JSON {
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else if err := render.NewAdvanceRenderer(cmd.OutOrStdout(), colorEnabled(cmd)).Render(result); err != nil {
				return err
			}

			if !result.Success {
				return errAdvanceFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "to", "", "Target state (active, succeeded, queued, executed)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func parseAdvanceTarget(name string) (models.ProposalState, error) {
	state, err := models.ParseProposalState(name)
	if err == nil {
		for _, t := range usecase.AdvanceTargets {
			if t == state {
				return state, nil
			}
		}
	}
	valid := make([]string, len(usecase.AdvanceTargets))
	for i, t := range usecase.AdvanceTargets {
		valid[i] = strings.ToLower(t.String())
	}
	return 0, fmt.Errorf("invalid target %q (valid: %s)", name, strings.Join(valid, ", "))
}
