// ABOUTME: Engine lifecycle events emitted during a run for observability.
// ABOUTME: Consumers subscribe via Config.EventHandler; the JSONL sink and TUI build on this stream.
package engine

import (
	"time"
)

// EventType identifies the kind of engine lifecycle event.
type EventType string

const (
	EventRunStarted    EventType = "run.started"
	EventRunCompleted  EventType = "run.completed"
	EventRunFailed     EventType = "run.failed"
	EventNodeStarted   EventType = "node.started"
	EventNodeCompleted EventType = "node.completed"
	EventNodeFailed    EventType = "node.failed"
	EventNodeSkipped   EventType = "node.skipped"
	EventMemorySaved   EventType = "memory.saved"
)

// Event is one lifecycle event emitted by the engine during a run.
type Event struct {
	Type       EventType      `json:"type"`
	RunID      string         `json:"run_id"`
	PipelineID string         `json:"pipeline_id,omitempty"`
	NodeID     string         `json:"node_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
