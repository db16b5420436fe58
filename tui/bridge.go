// ABOUTME: Bridge connecting the pipeline engine to the Bubble Tea message loop.
// ABOUTME: Provides EventBridge for event injection and tea.Cmd factories for run execution and ticks.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/flumehq/flume/engine"
)

// EventBridge wraps a tea.Program's Send method for injecting engine events
// into the Bubble Tea message loop.
type EventBridge struct {
	send func(msg tea.Msg)
}

// NewEventBridge creates an EventBridge that sends messages via the given function.
// Typically called with program.Send as the argument.
func NewEventBridge(send func(msg tea.Msg)) *EventBridge {
	return &EventBridge{send: send}
}

// HandleEvent implements the engine.Config.EventHandler signature.
// It wraps the event in an EngineEventMsg and sends it to the TUI.
func (b *EventBridge) HandleEvent(evt engine.Event) {
	b.send(EngineEventMsg{Event: evt})
}

// RunPipelineCmd returns a tea.Cmd that runs the engine on the given graph.
// When the run completes (or fails), it sends a RunResultMsg.
// The context allows cancellation when the user quits the TUI.
func RunPipelineCmd(ctx context.Context, e *engine.Engine, graph *engine.Graph, trigger map[string]any, userID string) tea.Cmd {
	return func() tea.Msg {
		result, err := e.Run(ctx, graph, trigger, userID)
		return RunResultMsg{Result: result, Err: err}
	}
}

// TickCmd returns a tea.Cmd that sends a TickMsg after the given interval.
// Used for spinner animation and periodic UI refreshes.
func TickCmd(interval time.Duration) tea.Cmd {
	return func() tea.Msg {
		time.Sleep(interval)
		return TickMsg{Time: time.Now()}
	}
}
