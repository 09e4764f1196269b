package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/trebuchet-org/govsync/internal/cli/render"
	"github.com/trebuchet-org/govsync/internal/domain/models"
)

// Messages delivered to the watch view
type (
	recordMsg struct{ record *models.ProposalRecord }
	resetMsg  struct{ network string }
	statusMsg struct {
		height    uint64
		ledgerNow uint64
		blockTime time.Duration
	}
	errMsg struct {
		err   error
		fatal bool
	}
)

// watchModel is the bubbletea model for the live proposal view
type watchModel struct {
	network    string
	records    map[models.ProposalID]*models.ProposalRecord
	height     uint64
	ledgerNow  uint64
	blockTime  time.Duration
	lastChange time.Time
	changes    int
	err        error
	loading    bool
	quitting   bool
	useColor   bool
}

func newWatchModel(network string, useColor bool) watchModel {
	return watchModel{
		network:  network,
		records:  make(map[models.ProposalID]*models.ProposalRecord),
		loading:  true,
		useColor: useColor,
	}
}

// Init is the initial command for bubbletea
func (m watchModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case recordMsg:
		m.records[msg.record.ID] = msg.record
		m.lastChange = time.Now()
		m.changes++
	case resetMsg:
		m.network = msg.network
		m.records = make(map[models.ProposalID]*models.ProposalRecord)
		m.loading = true
		m.err = nil
	case statusMsg:
		m.height = msg.height
		m.ledgerNow = msg.ledgerNow
		m.blockTime = msg.blockTime
		m.loading = false
	case errMsg:
		m.err = msg.err
		if msg.fatal {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// sorted returns records newest first, matching the store's order
func (m watchModel) sorted() []*models.ProposalRecord {
	out := make([]*models.ProposalRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedHeight != out[j].CreatedHeight {
			return out[i].CreatedHeight > out[j].CreatedHeight
		}
		if out[i].CreatedLogIndex != out[j].CreatedLogIndex {
			return out[i].CreatedLogIndex > out[j].CreatedLogIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// View renders the UI
func (m watchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	title := fmt.Sprintf("govsync · %s", m.network)
	if m.useColor {
		title = color.New(color.FgCyan, color.Bold).Sprint(title)
	}
	b.WriteString(title + "\n")

	if m.loading && m.height == 0 {
		b.WriteString("Loading proposals…\n")
	} else {
		b.WriteString(fmt.Sprintf("height %d · ledger time %s · ~%s/block · %d changes\n\n",
			m.height, render.FormatLedgerTime(m.ledgerNow), m.blockTime, m.changes))
		if len(m.records) == 0 {
			b.WriteString("No proposals yet\n")
		} else {
			b.WriteString(render.ProposalTable(m.sorted(), m.ledgerNow, m.useColor))
			b.WriteString("\n")
		}
	}

	if m.err != nil {
		b.WriteString("\n" + render.FormatError(m.err.Error()) + "\n")
	}

	help := "q: quit"
	if m.useColor {
		help = color.New(color.Faint).Sprint(help)
	}
	b.WriteString("\n" + help + "\n")
	return b.String()
}
