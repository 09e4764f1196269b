package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govsync/internal/app"
	"github.com/trebuchet-org/govsync/internal/cli/render"
	"github.com/trebuchet-org/govsync/internal/config"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// NewNetworksCmd creates the networks command
func NewNetworksCmd() *cobra.Command {
	var noProbe bool

	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List networks from govsync.toml",
		Long: `List all networks configured in govsync.toml.

Each endpoint is asked for its chain id, which is checked against the
configured chain_id. The selected network is marked with *.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := config.SetupViper("", cmd)
			uc, err := app.InitListNetworks(v)
			if err != nil {
				return err
			}

			result, err := uc.Run(cmd.Context(), usecase.ListNetworksParams{Probe: !noProbe})
			if err != nil {
				return err
			}

			if v.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), networksOutput(result))
			}
			return render.NewNetworksRenderer(cmd.OutOrStdout(), colorEnabled(cmd)).Render(result)
		},
	}

	cmd.Flags().BoolVar(&noProbe, "no-probe", false, "Do not contact the endpoints")

	return cmd
}

type networkJSON struct {
	usecase.NetworkStatus
	Error string `json:"error,omitempty"`
}

func networksOutput(result *usecase.ListNetworksResult) []networkJSON {
	out := make([]networkJSON, len(result.Networks))
	for i, n := range result.Networks {
		out[i] = networkJSON{NetworkStatus: n}
		if n.Error != nil {
			out[i].Error = n.Error.Error()
		}
	}
	return out
}
