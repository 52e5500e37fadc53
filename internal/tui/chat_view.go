package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/wellplan/internal/session"
)

var (
	userBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#2F4F7F")).
			Padding(0, 1)
	botBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0E0E0")).
			Background(lipgloss.Color("#333333")).
			Padding(0, 1)
	senderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// renderTranscript draws messages oldest first; user bubbles sit on the
// right, planner bubbles on the left.
func renderTranscript(msgs []session.Message, width int) string {
	if len(msgs) == 0 {
		return emptyPlanStyle.Render("Ask for a change, e.g. \"swap day 2 lunch\".")
	}
	width = max(20, width)
	bubbleWidth := max(12, width*3/4)
	rows := make([]string, 0, len(msgs)*2)
	for _, msg := range msgs {
		rows = append(rows, renderBubble(msg, width, bubbleWidth))
	}
	return strings.Join(rows, "\n")
}

func renderBubble(msg session.Message, width, bubbleWidth int) string {
	text := strings.TrimSpace(msg.Text)
	switch msg.Sender {
	case session.SenderUser:
		bubble := userBubbleStyle.Width(min(bubbleWidth, lipgloss.Width(text)+2)).Render(text)
		head := senderStyle.Render("you")
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, lipgloss.JoinVertical(lipgloss.Right, head, bubble))
	default:
		bubble := botBubbleStyle.Width(min(bubbleWidth, lipgloss.Width(text)+2)).Render(text)
		head := senderStyle.Render("planner")
		return lipgloss.JoinVertical(lipgloss.Left, head, bubble)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
