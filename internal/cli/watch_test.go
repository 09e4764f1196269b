package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govsync/internal/domain/models"
)

func watchRecord(id string, height uint64, title string, state models.ProposalState) *models.ProposalRecord {
	return &models.ProposalRecord{
		ID:            models.ProposalID(id),
		Title:         title,
		State:         state,
		CreatedHeight: height,
		Votes:         models.VoteTally{For: decimal.NewFromInt(5), Against: decimal.Zero, Abstain: decimal.Zero},
	}
}

func update(t *testing.T, m watchModel, msg tea.Msg) watchModel {
	t.Helper()
	next, _ := m.Update(msg)
	wm, ok := next.(watchModel)
	require.True(t, ok)
	return wm
}

func TestWatchModelTracksRecords(t *testing.T) {
	m := newWatchModel("local", false)
	assert.Contains(t, m.View(), "Loading proposals")

	m = update(t, m, recordMsg{record: watchRecord("1", 10, "Older", models.ProposalStateActive)})
	m = update(t, m, recordMsg{record: watchRecord("2", 20, "Newer", models.ProposalStatePending)})
	m = update(t, m, statusMsg{height: 25, ledgerNow: 1_700_000_000, blockTime: time.Second})

	sorted := m.sorted()
	require.Len(t, sorted, 2)
	assert.Equal(t, models.ProposalID("2"), sorted[0].ID)

	view := m.View()
	assert.Contains(t, view, "govsync · local")
	assert.Contains(t, view, "height 25")
	assert.Contains(t, view, "Newer")
	assert.Less(t, strings.Index(view, "Newer"), strings.Index(view, "Older"))

	// A second change to the same proposal replaces it
	m = update(t, m, recordMsg{record: watchRecord("1", 10, "Older", models.ProposalStateSucceeded)})
	assert.Len(t, m.records, 2)
	assert.Equal(t, models.ProposalStateSucceeded, m.records["1"].State)
	assert.Equal(t, 3, m.changes)
}

func TestWatchModelReset(t *testing.T) {
	m := newWatchModel("local", false)
	m = update(t, m, recordMsg{record: watchRecord("1", 10, "Older", models.ProposalStateActive)})
	m = update(t, m, resetMsg{network: "sepolia"})

	assert.Empty(t, m.records)
	assert.Equal(t, "sepolia", m.network)
	assert.True(t, m.loading)
}

func TestWatchModelQuit(t *testing.T) {
	m := newWatchModel("local", false)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, next.(watchModel).quitting)
	assert.Empty(t, next.View())
}

func TestWatchModelErrors(t *testing.T) {
	m := newWatchModel("local", false)

	m = update(t, m, errMsg{err: errors.New("reload failed: bad toml")})
	assert.False(t, m.quitting)
	assert.Contains(t, m.View(), "Bad toml")

	_, cmd := m.Update(errMsg{err: errors.New("dial failed"), fatal: true})
	assert.NotNil(t, cmd)
}

func TestLineEmitter(t *testing.T) {
	var buf bytes.Buffer
	emit := lineEmitter(&buf, false)
	emit(resetMsg{network: "local"})
	emit(recordMsg{record: watchRecord("42", 1, "Store 42", models.ProposalStateActive)})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "watching local", lines[0])
	assert.Contains(t, lines[1], "Active")
	assert.Contains(t, lines[1], "for=5")
	assert.Contains(t, lines[1], "Store 42")

	buf.Reset()
	emit = lineEmitter(&buf, true)
	emit(resetMsg{network: "local"})
	emit(recordMsg{record: watchRecord("42", 1, "Store 42", models.ProposalStateActive)})
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	assert.Contains(t, buf.String(), `"state":"Active"`)
}

func TestUseWatchTUI(t *testing.T) {
	assert.True(t, useWatchTUI(false, false, false))
	assert.False(t, useWatchTUI(true, false, false))
	assert.False(t, useWatchTUI(false, true, false))
	assert.False(t, useWatchTUI(false, false, true))
}
