// Package tui is the optional status view (spec.md §4.J): a bubbletea
// program that subscribes to the orchestrator's event multiplexer and
// renders a header of passing/in-progress/pending/total counts, a scrolling
// raw-log panel, and a blocked-features panel. It holds no orchestration
// state of its own — it is purely a consumer of eventmux output and
// periodic store snapshots.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/autoforge/engine/internal/eventmux"
	"github.com/autoforge/engine/internal/graph"
	"github.com/autoforge/engine/internal/store"
)

// pollInterval is how often the TUI re-reads the backlog snapshot for
// the header counts and blocked-features panel.
const pollInterval = 1 * time.Second

// Model is the bubbletea root model.
type Model struct {
	store *store.Store
	mux   *eventmux.Mux

	header  headerModel
	logs    logsModel
	blocked blockedModel

	rawCh <-chan string
	err   error
}

// New constructs the status view over an open store and the
// orchestrator's event multiplexer.
func New(st *store.Store, mux *eventmux.Mux) Model {
	return Model{
		store:   st,
		mux:     mux,
		logs:    newLogsModel(),
		blocked: newBlockedModel(),
		rawCh:   mux.SubscribeRaw(),
	}
}

type tickMsg time.Time
type lineMsg string
type snapshotMsg struct {
	counts  store.Counts
	blocked []graph.BlockedSet
	err     error
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.pollTick(), m.waitForLine())
}

func (m Model) pollTick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) waitForLine() tea.Cmd {
	return func() tea.Msg {
		line, ok := <-m.rawCh
		if !ok {
			return nil
		}
		return lineMsg(line)
	}
}

func (m Model) fetchSnapshot() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts, err := m.store.Counts(ctx)
	if err != nil {
		return snapshotMsg{err: err}
	}
	snap, err := m.store.Snapshot(ctx)
	if err != nil {
		return snapshotMsg{err: err}
	}
	return snapshotMsg{counts: counts, blocked: graph.BlockedFeatures(snap, 10)}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(m.pollTick(), func() tea.Msg { return m.fetchSnapshot() })
	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.header = m.header.withCounts(msg.counts)
		m.blocked = m.blocked.withBlocked(msg.blocked)
	case lineMsg:
		m.logs = m.logs.append(string(msg))
		return m, m.waitForLine()
	}
	return m, nil
}

func (m Model) View() string {
	return m.header.View() + "\n" + m.blocked.View() + "\n" + m.logs.View()
}
