// ABOUTME: Bubble Tea message types used in the TUI message loop.
// ABOUTME: Each type wraps domain events for the tea.Msg interface (which is interface{}).
package tui

import (
	"time"

	"github.com/flumehq/flume/engine"
)

// EngineEventMsg wraps an engine lifecycle event for the Bubble Tea message loop.
type EngineEventMsg struct {
	Event engine.Event
}

// RunResultMsg signals that the pipeline run has finished executing.
type RunResultMsg struct {
	Result *engine.RunResult
	Err    error
}

// TickMsg is sent periodically to update timers and spinners.
type TickMsg struct {
	Time time.Time
}
