package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

type executableOutput struct {
	ID         models.ProposalID    `json:"id"`
	State      models.ProposalState `json:"state"`
	Executable bool                 `json:"executable"`
	ETA        uint64               `json:"eta"`
	LedgerNow  uint64               `json:"ledgerNow"`
}

// NewExecutableCmd creates the executable command
func NewExecutableCmd() *cobra.Command {
	var exitCode bool

	cmd := &cobra.Command{
		Use:   "executable <proposal-id>",
		Short: "Check whether a queued proposal's timelock has elapsed",
		Long: `Report whether a proposal can be executed now, judged against the
ledger's own clock rather than local time.

With --exit-code the command exits non-zero when the proposal is not
executable, for use in scripts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.ShowProposal.Run(cmd.Context(), usecase.ShowProposalParams{ID: models.ProposalID(args[0])})
			if err != nil {
				return err
			}

			out := executableOutput{
				ID:         result.Proposal.ID,
				State:      result.Proposal.State,
				Executable: result.Executable,
				ETA:        result.Proposal.ETA,
				LedgerNow:  result.LedgerNow,
			}
			if app.Config.JSON {
				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s executable=%t\n", out.ID.Short(), out.State, out.Executable)
			}

			if exitCode && !out.Executable {
				return fmt.Errorf("proposal %s is not executable", out.ID.Short())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Exit with an error when not executable")

	return cmd
}
