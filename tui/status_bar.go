// ABOUTME: Implements a single-line status bar for the bottom of the TUI showing run progress.
// ABOUTME: Displays pipeline id, elapsed time, node completion count, and the run id once known.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// StatusBarModel displays run status in a single line.
type StatusBarModel struct {
	pipelineID     string
	runID          string
	startTime      time.Time
	totalNodes     int
	completedNodes int
	width          int
}

// NewStatusBarModel creates a new StatusBarModel for the given pipeline.
func NewStatusBarModel(pipelineID string, totalNodes int) StatusBarModel {
	return StatusBarModel{
		pipelineID: pipelineID,
		totalNodes: totalNodes,
	}
}

// Start records the run start time and id.
func (m *StatusBarModel) Start(runID string) {
	m.startTime = time.Now()
	m.runID = runID
}

// SetCompleted updates the completed node count.
func (m *StatusBarModel) SetCompleted(n int) {
	m.completedNodes = n
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// Elapsed returns the time since Start() was called, or zero if not started.
func (m StatusBarModel) Elapsed() time.Duration {
	if m.startTime.IsZero() {
		return 0
	}
	return time.Since(m.startTime)
}

// formatElapsed formats a duration as a human-readable string.
// Durations under a minute show as seconds (e.g. "12s").
// Durations of a minute or more show as minutes and seconds (e.g. "2m30s").
func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) - minutes*60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	runID := m.runID
	if runID == "" {
		runID = "-"
	}

	content := fmt.Sprintf("Pipeline: %s | Run: %s | Elapsed: %s | %d/%d nodes",
		m.pipelineID, runID, formatElapsed(m.Elapsed()), m.completedNodes, m.totalNodes)

	style := StatusBarStyle.Width(m.width)

	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(content))
}
