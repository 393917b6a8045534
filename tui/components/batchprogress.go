package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/user/gopro-telemetry/tui/styles"
)

// BatchProgressState holds the state for the batch progress display.
type BatchProgressState struct {
	Active      bool
	Total       int
	Completed   int
	Errors      int
	CurrentFile string
	// LastStep describes the most recent step outcome, e.g. "gpx done".
	LastStep string
	// Elapsed is preformatted by the caller.
	Elapsed    string
	Cancelling bool
}

// Percent returns the completed share as 0-100.
func (s BatchProgressState) Percent() int {
	if s.Total <= 0 {
		return 0
	}
	return s.Completed * 100 / s.Total
}

// BatchProgress renders a bordered info box showing batch progress.
// It displays a progress bar, percentage, video counter, current file and last step.
func BatchProgress(state BatchProgressState, width int) string {
	if !state.Active || width < 10 {
		return ""
	}

	greenStyle := lipgloss.NewStyle().Foreground(styles.Green)
	amberStyle := lipgloss.NewStyle().Foreground(styles.Amber)

	// box border = 2, plus 1 space padding each side
	innerW := width - 4
	if innerW < 6 {
		innerW = 6
	}

	// " XXX%" label is 5 columns, plus 1 leading space
	barWidth := innerW - 6
	if barWidth < 4 {
		barWidth = 4
	}
	filled := 0
	if state.Total > 0 {
		filled = barWidth * state.Completed / state.Total
	}
	if filled > barWidth {
		filled = barWidth
	}

	bar := greenStyle.Render(strings.Repeat("█", filled)) + amberStyle.Render(strings.Repeat("░", barWidth-filled))
	lines := []string{" " + bar + styles.PrimaryText.Render(fmt.Sprintf(" %3d%%", state.Percent()))}

	counter := styles.PrimaryText.Render(fmt.Sprintf(" %d/%d videos", state.Completed, state.Total))
	if state.Elapsed != "" {
		counter += "  " + styles.SecondaryText.Render(state.Elapsed)
	}
	if state.Errors > 0 {
		counter += "  " + styles.Warning.Render(fmt.Sprintf("%d failed", state.Errors))
	}
	lines = append(lines, counter)

	switch {
	case state.Cancelling:
		lines = append(lines, " "+styles.Warning.Render("Cancelling..."))
	case state.Total > 0 && state.Completed == state.Total:
		lines = append(lines, " "+styles.Success.Render("Batch complete"))
	case state.CurrentFile != "":
		lines = append(lines, " "+styles.PrimaryText.Render(fit(state.CurrentFile, innerW-2)))
		if state.LastStep != "" {
			lines = append(lines, " "+styles.Accent.Render(fit(state.LastStep, innerW-2)))
		}
	}

	return RenderInfoBox("Telemetry", lines, width)
}

func fit(s string, w int) string {
	if w < 4 || lipgloss.Width(s) <= w {
		return s
	}
	return ansi.Truncate(s, w-3, "...")
}
