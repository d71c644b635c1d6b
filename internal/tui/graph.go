package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/autoforge/engine/internal/graph"
)

var (
	blockedPanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("203")).
		Padding(0, 1)
	blockedTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
)

// blockedModel lists blocked features with their current blocking set,
// the engine-domain analogue of the teacher's dependency graph panel.
type blockedModel struct {
	sets []graph.BlockedSet
}

func newBlockedModel() blockedModel {
	return blockedModel{}
}

func (b blockedModel) withBlocked(sets []graph.BlockedSet) blockedModel {
	b.sets = sets
	return b
}

func (b blockedModel) View() string {
	if len(b.sets) == 0 {
		return blockedPanelStyle.Render(blockedTitleStyle.Render("blocked") + "\n(none)")
	}
	var lines []string
	lines = append(lines, blockedTitleStyle.Render("blocked"))
	for _, s := range b.sets {
		ids := make([]string, len(s.BlockedBy))
		for i, dep := range s.BlockedBy {
			ids[i] = fmt.Sprintf("#%d", dep)
		}
		lines = append(lines, fmt.Sprintf("#%d %s  blocked by %s", s.Feature.ID, s.Feature.Name, strings.Join(ids, ", ")))
	}
	return blockedPanelStyle.Render(strings.Join(lines, "\n"))
}
