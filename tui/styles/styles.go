// Package styles provides Lipgloss styles for the TUI using the Ciapre colour palette.
package styles

import "github.com/charmbracelet/lipgloss"

// Color palette - Ciapre (warm, earthy) theme from Gogh
const (
	// DeepPurple is the darkest background colour (Ciapre background)
	DeepPurple = lipgloss.Color("#191C27")
	// Purple is the border/dim accent colour (Ciapre ANSI 6 brown)
	Purple = lipgloss.Color("#5C4F4B")
	// BrightPurple is used for focus states (Ciapre ANSI 5 magenta)
	BrightPurple = lipgloss.Color("#724D7C")
	// Lavender is a secondary text colour (Ciapre foreground)
	Lavender = lipgloss.Color("#AEA47A")
	// LightLavender is the primary text colour (Ciapre ANSI 14 cream)
	LightLavender = lipgloss.Color("#F3DBB2")
	// Pink is used for box headers and form titles (Ciapre ANSI 13 bright magenta)
	Pink = lipgloss.Color("#D33061")
	// Cyan marks the step currently reported (Ciapre ANSI 12 bright blue)
	Cyan = lipgloss.Color("#3097C6")
	// Amber fills the unfinished part of progress bars (Ciapre derived)
	Amber = lipgloss.Color("#CC8B3F")
	// Red is used for failures (Ciapre ANSI 1)
	Red = lipgloss.Color("#AC3835")
	// Green is used for finished work (Ciapre ANSI 2)
	Green = lipgloss.Color("#A6A75D")
)

// PrimaryText is the style for primary text content
var PrimaryText = lipgloss.NewStyle().
	Foreground(LightLavender)

// SecondaryText is the style for less prominent text
var SecondaryText = lipgloss.NewStyle().
	Foreground(Lavender)

// Warning is the style for failures and cancellation notices
var Warning = lipgloss.NewStyle().
	Foreground(Red).
	Bold(true)

// Success is the style for success messages
var Success = lipgloss.NewStyle().
	Foreground(Green).
	Bold(true)

// Accent highlights the active step.
var Accent = lipgloss.NewStyle().
	Foreground(Cyan)
