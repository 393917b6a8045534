package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/user/gopro-telemetry/tui/styles"
)

// RenderInfoBox renders a bordered box with a tab-style header and content lines.
// Content lines are rendered as-is (caller handles styling).
//
//	╭─ Title ───────╮
//	│ content       │
//	╰───────────────╯
func RenderInfoBox(title string, contentLines []string, width int) string {
	if width < 4 {
		return ""
	}

	innerWidth := width - 2

	headerStyle := lipgloss.NewStyle().Foreground(styles.Pink).Bold(true)
	borderStyle := lipgloss.NewStyle().Foreground(styles.Purple)

	headerText := headerStyle.Render(" " + title + " ")
	fillWidth := innerWidth - 1 - lipgloss.Width(headerText)
	if fillWidth < 0 {
		fillWidth = 0
	}
	topLine := borderStyle.Render("╭─") + headerText + borderStyle.Render(strings.Repeat("─", fillWidth)+"╮")

	rendered := make([]string, 0, len(contentLines)+2)
	rendered = append(rendered, topLine)
	for _, line := range contentLines {
		pad := innerWidth - lipgloss.Width(line)
		if pad < 0 {
			pad = 0
		}
		rendered = append(rendered, borderStyle.Render("│")+line+strings.Repeat(" ", pad)+borderStyle.Render("│"))
	}
	rendered = append(rendered, borderStyle.Render("╰"+strings.Repeat("─", innerWidth)+"╯"))

	return strings.Join(rendered, "\n")
}
