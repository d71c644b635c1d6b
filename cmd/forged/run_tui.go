package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/autoforge/engine/internal/tui"
)

// newProgram wraps the status view in a bubbletea program running in the
// terminal's alternate screen buffer.
func newProgram(model tui.Model) *tea.Program {
	return tea.NewProgram(model, tea.WithAltScreen())
}
