package render

import (
	"fmt"
	"io"
	"time"

	"github.com/trebuchet-org/govsync/internal/usecase"
)

// ProposalRenderer renders a single proposal in detail
type ProposalRenderer struct {
	out   io.Writer
	color bool
}

func NewProposalRenderer(out io.Writer, color bool) *ProposalRenderer {
	return &ProposalRenderer{out: out, color: color}
}

func (r *ProposalRenderer) Render(d *usecase.ProposalDetail) error {
	p := d.Proposal

	fmt.Fprintf(r.out, "%s\n", paint(sectionHeaderStyle, r.color, "%s", FormatTitle(p.Title, 0)))
	fmt.Fprintf(r.out, "%s\n\n", FormatState(p.State, r.color))

	r.field("id", string(p.ID))
	r.field("proposer", p.Proposer.Hex())
	r.field("description hash", p.DescriptionHash.Hex())
	r.field("created at height", printer.Sprintf("%d", p.CreatedHeight))
	fmt.Fprintln(r.out)

	fmt.Fprintln(r.out, paint(sectionHeaderStyle, r.color, "Voting"))
	r.field("snapshot", r.heightAt(p.SnapshotHeight, d.Height, d.SnapshotAt))
	r.field("deadline", r.heightAt(p.DeadlineHeight, d.Height, d.DeadlineAt))
	r.field("for", paint(forStyle, r.color, "%s", FormatVotes(p.Votes.For)))
	r.field("against", paint(againstStyle, r.color, "%s", FormatVotes(p.Votes.Against)))
	r.field("abstain", paint(abstainStyle, r.color, "%s", FormatVotes(p.Votes.Abstain)))
	if p.ViewerVote != nil {
		voted := "no"
		if p.ViewerVote.HasVoted {
			voted = "yes"
		}
		r.field("viewer voted", fmt.Sprintf("%s (%s)", voted, FormatShortAddress(p.ViewerVote.Viewer)))
	}
	fmt.Fprintln(r.out)

	if p.ETA > 0 || p.ExecutedAt > 0 {
		fmt.Fprintln(r.out, paint(sectionHeaderStyle, r.color, "Timelock"))
		if p.ETA > 0 {
			r.field("eta", fmt.Sprintf("%s (%s)", FormatLedgerTime(p.ETA), FormatCountdown(p.ETA, d.LedgerNow)))
			r.field("executable", fmt.Sprintf("%t", d.Executable))
		}
		if p.ExecutedAt > 0 {
			r.field("executed at", FormatLedgerTime(p.ExecutedAt))
		}
		fmt.Fprintln(r.out)
	}

	fmt.Fprintln(r.out, paint(sectionHeaderStyle, r.color, "Actions (%d)", len(p.Targets)))
	for i, target := range p.Targets {
		value := "0"
		if i < len(p.CallValues) && p.CallValues[i] != nil {
			value = p.CallValues[i].String()
		}
		data := "0x"
		if i < len(p.CallData) {
			data = p.CallData[i].String()
		}
		fmt.Fprintf(r.out, "  %d. %s value=%s data=%s\n", i+1, target.Hex(), value, truncate(data, 74))
	}

	if p.Body != "" {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, paint(sectionHeaderStyle, r.color, "Description"))
		fmt.Fprintln(r.out, p.Body)
	}
	return nil
}

func (r *ProposalRenderer) field(label, value string) {
	fmt.Fprintf(r.out, "  %s %s\n", paint(labelStyle, r.color, "%-18s", FormatLabel(label)+":"), value)
}

func (r *ProposalRenderer) heightAt(height, current uint64, at time.Time) string {
	s := printer.Sprintf("%d", height)
	if height > current && !at.IsZero() {
		s += fmt.Sprintf(" (~%s)", at.UTC().Format("2006-01-02 15:04 UTC"))
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
