package render

import (
	"fmt"
	"io"

	"github.com/trebuchet-org/govsync/internal/usecase"
)

// AdvanceRenderer renders the outcome of an advancement run
type AdvanceRenderer struct {
	out   io.Writer
	color bool
}

func NewAdvanceRenderer(out io.Writer, color bool) *AdvanceRenderer {
	return &AdvanceRenderer{out: out, color: color}
}

func (r *AdvanceRenderer) Render(result *usecase.AdvanceResult) error {
	for _, step := range result.Steps {
		fmt.Fprintf(r.out, "  %s → %s  %s\n",
			FormatState(step.From, r.color), FormatState(step.To, r.color),
			paint(labelStyle, r.color, "%s", step.Action))
	}
	if result.Success {
		fmt.Fprintln(r.out, FormatSuccess(result.Message))
		return nil
	}
	fmt.Fprintln(r.out, paint(againstStyle, r.color, "❌ %s", result.Message))
	if result.Reverted {
		fmt.Fprintln(r.out, FormatWarning("ledger reverted to its state before the run"))
	}
	return nil
}
