package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	titleCaser = cases.Title(language.English)
	printer    = message.NewPrinter(language.English)

	sectionHeaderStyle = color.New(color.Bold, color.FgHiWhite)
	labelStyle         = color.New(color.Faint)
	addressStyle       = color.New(color.FgWhite)
	idStyle            = color.New(color.FgBlue)
	forStyle           = color.New(color.FgGreen)
	againstStyle       = color.New(color.FgRed)
	abstainStyle       = color.New(color.FgYellow)
)

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return color.New(color.FgYellow).Sprintf("⚠️  %s", lastCause(message))
}

// FormatError formats an error message with the error icon
func FormatError(message string) string {
	msg := lastCause(message)
	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}
	return color.New(color.FgRed).Sprintf("❌ %s", msg)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return color.New(color.FgGreen).Sprintf("✅ %s", message)
}

// lastCause keeps the innermost message of a wrapped error chain
func lastCause(message string) string {
	parts := strings.Split(message, ": ")
	return parts[len(parts)-1]
}

// StateStyle returns the colour used for a proposal state
func StateStyle(s models.ProposalState) *color.Color {
	switch s {
	case models.ProposalStatePending:
		return color.New(color.FgWhite)
	case models.ProposalStateActive:
		return color.New(color.FgYellow, color.Bold)
	case models.ProposalStateSucceeded:
		return color.New(color.FgCyan)
	case models.ProposalStateQueued:
		return color.New(color.FgMagenta)
	case models.ProposalStateExecuted:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgRed)
	}
}

// FormatState renders a state name, upper-cased and coloured
func FormatState(s models.ProposalState, useColor bool) string {
	name := strings.ToUpper(s.String())
	if !useColor {
		return name
	}
	return StateStyle(s).Sprint(name)
}

// FormatVotes renders a scaled tally with thousands separators
func FormatVotes(d decimal.Decimal) string {
	whole := d.Truncate(0)
	if whole.Abs().GreaterThan(decimal.New(1, 15)) {
		return d.StringFixed(0)
	}
	out := printer.Sprintf("%d", whole.IntPart())
	frac := d.Sub(whole).Abs()
	if !frac.IsZero() {
		digits := strings.TrimPrefix(frac.StringFixed(2), "0")
		if digits != ".00" {
			out += digits
		}
	}
	return out
}

// FormatShortAddress abbreviates an address to 0x1234…abcd
func FormatShortAddress(a common.Address) string {
	hex := a.Hex()
	return hex[:6] + "…" + hex[len(hex)-4:]
}

// FormatLedgerTime renders a unix timestamp read from the ledger
func FormatLedgerTime(ts uint64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02 15:04:05 UTC")
}

// FormatCountdown renders the ledger-time distance to eta
func FormatCountdown(eta, now uint64) string {
	if eta == 0 {
		return "-"
	}
	if now >= eta {
		return "ready"
	}
	return "in " + (time.Duration(eta-now) * time.Second).String()
}

// FormatTitle falls back to a placeholder for empty titles
func FormatTitle(title string, width int) string {
	if title == "" {
		return "(untitled)"
	}
	r := []rune(title)
	if width > 0 && len(r) > width {
		return string(r[:width-1]) + "…"
	}
	return title
}

// FormatLabel title-cases a field label
func FormatLabel(label string) string {
	return titleCaser.String(label)
}

func paint(c *color.Color, useColor bool, format string, args ...interface{}) string {
	if !useColor {
		return fmt.Sprintf(format, args...)
	}
	return c.Sprintf(format, args...)
}
