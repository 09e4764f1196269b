package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// NetworksRenderer renders network lists
type NetworksRenderer struct {
	out   io.Writer
	color bool
}

// NewNetworksRenderer creates a new networks renderer
func NewNetworksRenderer(out io.Writer, color bool) *NetworksRenderer {
	return &NetworksRenderer{
		out:   out,
		color: color,
	}
}

// Render renders the list of networks from govsync.toml
func (r *NetworksRenderer) Render(result *usecase.ListNetworksResult) error {
	if len(result.Networks) == 0 {
		fmt.Fprintln(r.out, "No networks configured in govsync.toml")
		return nil
	}

	fmt.Fprintln(r.out, "🌐 Available Networks:")
	fmt.Fprintln(r.out)

	for _, network := range result.Networks {
		marker := "  "
		if network.Current {
			marker = paint(forStyle, r.color, "* ")
		}
		if network.Error != nil {
			fmt.Fprintf(r.out, "%s❌ %s - Error: %v\n", marker, network.Name, network.Error)
			continue
		}

		line := fmt.Sprintf("%s✅ %s - Chain ID: %d", marker, network.Name, r.chainID(network))
		line += "  governor " + paint(addressStyle, r.color, "%s", FormatShortAddress(network.Governor))
		if network.TestControl {
			line += paint(color.New(color.FgYellow), r.color, "  [test control]")
		}
		fmt.Fprintln(r.out, line)
	}
	return nil
}

func (r *NetworksRenderer) chainID(n usecase.NetworkStatus) uint64 {
	if n.RemoteChainID != 0 {
		return n.RemoteChainID
	}
	return n.ChainID
}
