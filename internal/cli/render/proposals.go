package render

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// ProposalsRenderer renders proposal lists as a table
type ProposalsRenderer struct {
	out   io.Writer
	color bool
}

func NewProposalsRenderer(out io.Writer, color bool) *ProposalsRenderer {
	return &ProposalsRenderer{out: out, color: color}
}

func (r *ProposalsRenderer) Render(result *usecase.ProposalListResult) error {
	header := fmt.Sprintf("%s  height %s  ledger time %s",
		paint(sectionHeaderStyle, r.color, "%s", result.Network),
		printer.Sprintf("%d", result.Height),
		FormatLedgerTime(result.LedgerNow),
	)
	fmt.Fprintln(r.out, header)
	fmt.Fprintln(r.out)

	if len(result.Proposals) == 0 {
		fmt.Fprintln(r.out, "No proposals found")
		return nil
	}

	fmt.Fprintln(r.out, ProposalTable(result.Proposals, result.LedgerNow, r.color))
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.summary(result.Summary))
	return nil
}

func (r *ProposalsRenderer) summary(s usecase.ProposalSummary) string {
	states := make([]models.ProposalState, 0, len(s.ByState))
	for state := range s.ByState {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	line := fmt.Sprintf("Total: %d", s.Total)
	for _, state := range states {
		line += fmt.Sprintf("  %s: %d", paint(StateStyle(state), r.color, "%s", state), s.ByState[state])
	}
	if s.Executable > 0 {
		line += paint(forStyle, r.color, "  (%d ready to execute)", s.Executable)
	}
	return line
}

// ProposalTable renders records in their given order
func ProposalTable(records []*models.ProposalRecord, now uint64, useColor bool) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.Style().Options.SeparateRows = false
	t.Style().Box.PaddingRight = "  "
	t.Style().Box.PaddingLeft = ""

	t.AppendHeader(table.Row{"ID", "STATE", "TITLE", "FOR", "AGAINST", "ABSTAIN", "ETA", "PROPOSER"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 48},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	for _, p := range records {
		eta := "-"
		if p.State == models.ProposalStateQueued {
			eta = FormatCountdown(p.ETA, now)
		}
		t.AppendRow(table.Row{
			paint(idStyle, useColor, "%s", p.ID.Short()),
			FormatState(p.State, useColor),
			FormatTitle(p.Title, 48),
			paint(forStyle, useColor, "%s", FormatVotes(p.Votes.For)),
			paint(againstStyle, useColor, "%s", FormatVotes(p.Votes.Against)),
			paint(abstainStyle, useColor, "%s", FormatVotes(p.Votes.Abstain)),
			eta,
			paint(addressStyle, useColor, "%s", FormatShortAddress(p.Proposer)),
		})
	}
	return t.Render()
}
