// ABOUTME: Renders the post-run summary for the CLI: per-node status lines plus totals.
// ABOUTME: Uses the shared TUI styles so colors match the watch mode dashboard.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/flumehq/flume/engine"
	"github.com/flumehq/flume/tui"
)

var summaryHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))

// renderSummary formats a finished run as a per-node status table with totals.
func renderSummary(result *engine.RunResult) string {
	var b strings.Builder

	b.WriteString(summaryHeaderStyle.Render(fmt.Sprintf("Run %s (%s)", result.RunID, result.PipelineID)))
	b.WriteString("\n")

	counts := map[engine.NodeStatus]int{}
	for _, step := range result.Log {
		counts[step.Status]++

		line := fmt.Sprintf("  %s %-20s %-10s %s",
			tui.StatusIcon(step.Status), step.NodeID, step.Status, step.Duration.Round(time.Millisecond))
		if step.Error != "" {
			line += "  " + step.Error
		} else if step.Reason != "" {
			line += "  " + step.Reason
		}
		b.WriteString(tui.StyleForStatus(step.Status).Render(line))
		b.WriteString("\n")
	}

	elapsed := result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond)
	totals := fmt.Sprintf("%d completed, %d failed, %d skipped in %s",
		counts[engine.StatusCompleted], counts[engine.StatusFailed], counts[engine.StatusSkipped], elapsed)

	switch result.Status {
	case engine.RunCompleted:
		b.WriteString(tui.CompletedStyle.Render("DONE: " + totals))
	default:
		b.WriteString(tui.FailedStyle.Render("FAILED: " + totals))
		for _, e := range result.Errors {
			b.WriteString("\n")
			if e.NodeID != "" {
				b.WriteString(tui.FailedStyle.Render(fmt.Sprintf("  %s: %s", e.NodeID, e.Message)))
			} else {
				b.WriteString(tui.FailedStyle.Render("  " + e.Message))
			}
		}
	}

	return b.String()
}
