package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/wellplan/internal/plan"
)

var (
	dayTitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	dayLabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	dayTipStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Italic(true)
	emptyPlanStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	dayBlockPadding = 1
)

// RenderPlan projects the plan into one block per day, in plan order. The
// output depends only on its arguments, so repeated calls are identical.
func RenderPlan(p plan.Plan, width int) string {
	if len(p) == 0 {
		return emptyPlanStyle.Render("No plan yet.")
	}
	blocks := make([]string, 0, len(p))
	for _, day := range p {
		blocks = append(blocks, renderDay(day, width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func renderDay(day plan.Day, width int) string {
	lines := []string{
		dayTitleStyle.Render(day.Label()),
		dayLabelStyle.Render("Meals:"),
	}
	if len(day.Meals) == 0 {
		lines = append(lines, emptyPlanStyle.Render("  (none)"))
	}
	for _, meal := range day.Meals {
		lines = append(lines, "  • "+meal)
	}
	lines = append(lines,
		dayLabelStyle.Render("Suggestion:")+" "+strings.Join(day.Suggestions, ", "),
		dayLabelStyle.Render("Ingredients:")+" "+strings.Join(day.Ingredients, ", "),
		dayLabelStyle.Render("Activity:")+" "+day.Wellness.ActivityLine(),
		// Tip line is kept even when blank.
		dayTipStyle.Render(strings.TrimSpace(day.Wellness.Tip)),
	)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, dayBlockPadding).
		Width(max(20, width-2)).
		Render(strings.Join(lines, "\n"))
}
