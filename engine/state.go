// ABOUTME: Mutable run state for one pipeline execution: results bus, step log, error log, memory snapshot.
// ABOUTME: Owned exclusively by a single run; the log append is the sole ordering point for completion events.
package engine

import (
	"sync"
	"time"
)

// NodeStatus is the lifecycle state of a node within a run.
type NodeStatus string

const (
	StatusPending   NodeStatus = "pending"
	StatusReady     NodeStatus = "ready"
	StatusRunning   NodeStatus = "running"
	StatusCompleted NodeStatus = "completed"
	StatusFailed    NodeStatus = "failed"
	StatusSkipped   NodeStatus = "skipped"
)

// Terminal reports whether the status is a final state for a node.
func (s NodeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// StepRecord is one entry in the run's execution log. Entries are appended in
// completion order, which interleaves across parallel branches.
type StepRecord struct {
	NodeID   string         `json:"node_id"`
	BlockID  string         `json:"block_id"`
	Status   NodeStatus     `json:"status"`
	Output   map[string]any `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
	Reason   string         `json:"reason,omitempty"` // why a node was skipped
	Duration time.Duration  `json:"duration"`
	At       time.Time      `json:"at"`
}

// ErrorRecord is one entry in the run's error log.
type ErrorRecord struct {
	NodeID  string    `json:"node_id,omitempty"`
	BlockID string    `json:"block_id,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// RunState is the data bus for one execution. It accumulates per-node outputs,
// the ordered step log, and the ordered error log, and carries the read-only
// memory snapshot, trigger payload, and user profile loaded at run start.
//
// Each node id is written to results exactly once, by exactly one goroutine,
// before any downstream reader can observe it; memory, trigger, and user are
// never mutated after construction. Writes produced by memory-setting blocks
// accumulate in a pending patch and do not touch the snapshot.
type RunState struct {
	mu          sync.RWMutex
	results     map[string]map[string]any
	log         []StepRecord
	errors      []ErrorRecord
	memory      map[string]any
	memoryPatch map[string]any
	trigger     map[string]any
	user        map[string]any
}

// NewRunState creates the state for a fresh run. Nil maps are treated as empty.
func NewRunState(trigger, memory, user map[string]any) *RunState {
	if trigger == nil {
		trigger = map[string]any{}
	}
	if memory == nil {
		memory = map[string]any{}
	}
	if user == nil {
		user = map[string]any{}
	}
	return &RunState{
		results:     make(map[string]map[string]any),
		memoryPatch: make(map[string]any),
		memory:      memory,
		trigger:     trigger,
		user:        user,
	}
}

// SetResult records a node's output. The first write for a node id wins;
// later writes are ignored to preserve the write-once invariant.
func (s *RunState) SetResult(nodeID string, output map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[nodeID]; exists {
		return
	}
	if output == nil {
		output = map[string]any{}
	}
	s.results[nodeID] = output
}

// Result returns a node's output and whether the node has produced one.
func (s *RunState) Result(nodeID string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, ok := s.results[nodeID]
	return out, ok
}

// Results returns a shallow copy of the full results map.
func (s *RunState) Results() map[string]map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]map[string]any, len(s.results))
	for k, v := range s.results {
		snap[k] = v
	}
	return snap
}

// AppendStep adds a record to the execution log.
func (s *RunState) AppendStep(rec StepRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, rec)
}

// Log returns a copy of the execution log in completion order.
func (s *RunState) Log() []StepRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StepRecord, len(s.log))
	copy(out, s.log)
	return out
}

// AppendError adds a record to the error log.
func (s *RunState) AppendError(rec ErrorRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, rec)
}

// Errors returns a copy of the error log.
func (s *RunState) Errors() []ErrorRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ErrorRecord, len(s.errors))
	copy(out, s.errors)
	return out
}

// ErrorCount returns the number of recorded errors.
func (s *RunState) ErrorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.errors)
}

// Memory returns the read-only memory snapshot loaded at run start.
// Callers must not mutate the returned map.
func (s *RunState) Memory() map[string]any {
	return s.memory
}

// User returns the read-only user profile. Callers must not mutate it.
func (s *RunState) User() map[string]any {
	return s.user
}

// Trigger returns the read-only trigger payload. Callers must not mutate it.
func (s *RunState) Trigger() map[string]any {
	return s.trigger
}

// StageMemory stages a key-value pair into the pending memory patch. The
// in-run snapshot is left untouched, so resolution within the same run keeps
// seeing pre-run values.
func (s *RunState) StageMemory(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memoryPatch[key] = value
}

// MemoryPatch returns a copy of the staged memory writes.
func (s *RunState) MemoryPatch() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	patch := make(map[string]any, len(s.memoryPatch))
	for k, v := range s.memoryPatch {
		patch[k] = v
	}
	return patch
}

// refRoot resolves a template namespace to its backing value. "memory",
// "user", and "trigger" are reserved; any other namespace addresses the
// output of the node with that id.
func (s *RunState) refRoot(namespace string) (any, bool) {
	switch namespace {
	case "memory":
		return s.memory, true
	case "user":
		return s.user, true
	case "trigger":
		return s.trigger, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, ok := s.results[namespace]
	return out, ok
}
