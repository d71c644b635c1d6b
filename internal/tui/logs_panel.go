package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// maxLogLines bounds the scrolling raw-log panel; older lines are
// dropped as new ones arrive.
const maxLogLines = 200

var logPanelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("240")).
	Padding(0, 1)

// logsModel is the scrolling raw-log panel: every line the event
// multiplexer's raw subscriber receives, already sanitized upstream by
// the worker's redaction filter, rendered through a bubbles viewport so
// the panel scrolls independently of the header and blocked panels.
type logsModel struct {
	lines    []string
	viewport viewport.Model
}

func newLogsModel() logsModel {
	vp := viewport.New(80, 12)
	return logsModel{viewport: vp}
}

func (l logsModel) append(line string) logsModel {
	l.lines = append(l.lines, line)
	if len(l.lines) > maxLogLines {
		l.lines = l.lines[len(l.lines)-maxLogLines:]
	}
	l.viewport.SetContent(strings.Join(l.lines, "\n"))
	l.viewport.GotoBottom()
	return l
}

func (l logsModel) View() string {
	return logPanelStyle.Render(l.viewport.View())
}
