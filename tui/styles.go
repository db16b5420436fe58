// ABOUTME: Defines lipgloss style constants for the TUI panels, status colors, and log formatting.
// ABOUTME: Provides StyleForStatus and StatusIcon to map node statuses to their display forms.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/flumehq/flume/engine"
)

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	// Title styling
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Status colors
	PendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	RunningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	CompletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FailedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	SkippedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	// Log event colors
	LogTimestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	LogEventStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	LogErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	LogSuccessStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)
)

// StyleForStatus returns the appropriate lipgloss style for a node status.
func StyleForStatus(status engine.NodeStatus) lipgloss.Style {
	switch status {
	case engine.StatusRunning:
		return RunningStyle
	case engine.StatusCompleted:
		return CompletedStyle
	case engine.StatusFailed:
		return FailedStyle
	case engine.StatusSkipped:
		return SkippedStyle
	default:
		return PendingStyle
	}
}

// StatusIcon returns a bracket-style status marker for TUI display.
func StatusIcon(status engine.NodeStatus) string {
	switch status {
	case engine.StatusRunning:
		return "[~]"
	case engine.StatusCompleted:
		return "[*]"
	case engine.StatusFailed:
		return "[!]"
	case engine.StatusSkipped:
		return "[-]"
	default:
		return "[ ]"
	}
}

// SpinnerFrames contains the Braille-dot animation frames for indicating
// running nodes in the TUI.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
