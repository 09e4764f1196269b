package interactive

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"
	"github.com/trebuchet-org/govsync/internal/domain/config"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// SelectorAdapter picks a proposal from a list
type SelectorAdapter struct {
	config *config.RuntimeConfig
}

func NewSelectorAdapter(cfg *config.RuntimeConfig) *SelectorAdapter {
	return &SelectorAdapter{config: cfg}
}

// SelectProposal prompts for one of proposals, searchable by title or id
func (s *SelectorAdapter) SelectProposal(ctx context.Context, proposals []*models.ProposalRecord, prompt string) (*models.ProposalRecord, error) {
	if s.config.NonInteractive {
		return nil, fmt.Errorf("interactive selection not available in non-interactive mode")
	}
	if len(proposals) == 0 {
		return nil, fmt.Errorf("no proposals to select from")
	}
	if len(proposals) == 1 {
		return proposals[0], nil
	}

	options := formatProposalOptions(proposals)
	keys := searchKeys(proposals)

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, type to filter, Enter to select"),
	}

	promptSelect := promptui.Select{
		Label:             prompt,
		Items:             options,
		Templates:         templates,
		Size:              10,
		StartInSearchMode: true,
		Searcher:          fuzzySearcher(keys),
	}

	index, _, err := promptSelect.Run()
	if err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", err)
	}
	return proposals[index], nil
}

func formatProposalOptions(proposals []*models.ProposalRecord) []string {
	options := make([]string, len(proposals))
	for i, p := range proposals {
		title := p.Title
		if title == "" {
			title = "(untitled)"
		}
		options[i] = fmt.Sprintf("%s %s %s",
			color.New(color.FgWhite, color.Bold).Sprint(title),
			stateColor(p.State).Sprintf("[%s]", p.State),
			color.New(color.FgBlue).Sprint(p.ID.Short()),
		)
	}
	return options
}

// searchKeys are the uncolored strings the search runs against
func searchKeys(proposals []*models.ProposalRecord) []string {
	keys := make([]string, len(proposals))
	for i, p := range proposals {
		keys[i] = strings.ToLower(p.Title + " " + p.State.String() + " " + string(p.ID))
	}
	return keys
}

func fuzzySearcher(keys []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" {
			return true
		}
		input = strings.ToLower(input)
		item := keys[index]
		if strings.Contains(item, input) {
			return true
		}
		return len(fuzzy.Find(input, []string{item})) > 0
	}
}

func stateColor(s models.ProposalState) *color.Color {
	switch s {
	case models.ProposalStateActive:
		return color.New(color.FgYellow)
	case models.ProposalStateSucceeded, models.ProposalStateQueued:
		return color.New(color.FgCyan)
	case models.ProposalStateExecuted:
		return color.New(color.FgGreen)
	case models.ProposalStateCanceled, models.ProposalStateDefeated, models.ProposalStateExpired:
		return color.New(color.FgRed)
	}
	return color.New(color.FgWhite)
}

var _ usecase.ProposalSelector = (*SelectorAdapter)(nil)
