package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/autoforge/engine/internal/store"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// headerModel renders the passing/in-progress/pending counts and the total.
type headerModel struct {
	counts store.Counts
}

func (h headerModel) withCounts(c store.Counts) headerModel {
	h.counts = c
	return h
}

func (h headerModel) View() string {
	pending := h.counts.Total - h.counts.Passing - h.counts.InProgress
	return headerStyle.Render(fmt.Sprintf(
		"%s  %s  %s  total %d",
		doneStyle.Render(fmt.Sprintf("passing %d", h.counts.Passing)),
		progressStyle.Render(fmt.Sprintf("in-progress %d", h.counts.InProgress)),
		pendingStyle.Render(fmt.Sprintf("pending %d", pending)),
		h.counts.Total,
	))
}
