// ABOUTME: Filesystem event sink that routes engine events into one JSONL log per run.
// ABOUTME: Logs are opened lazily on first event and closed together with the sink.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/flumehq/flume/engine"
)

// Sink writes engine events to per-run JSONL logs under a root directory.
// Layout: <root>/runs/<run_id>/events.jsonl.
type Sink struct {
	root string

	mu   sync.Mutex
	logs map[string]*RunLog
}

// NewSink creates a sink rooted at dir, creating the directory if needed.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Join(dir, "runs"), 0o755); err != nil {
		return nil, fmt.Errorf("create sink root: %w", err)
	}
	return &Sink{root: dir, logs: make(map[string]*RunLog)}, nil
}

// Append routes one event to its run's log, opening the log on first use.
// Events without a run id are dropped.
func (s *Sink) Append(event engine.Event) error {
	if event.RunID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.logs[event.RunID]
	if !ok {
		var err error
		log, err = OpenRunLog(s.eventPath(event.RunID))
		if err != nil {
			return fmt.Errorf("open log for run %s: %w", event.RunID, err)
		}
		s.logs[event.RunID] = log
	}
	return log.Append(event)
}

// HandleEvent adapts Append to the engine's event callback signature,
// swallowing write errors so a full disk can't take down a run.
func (s *Sink) HandleEvent(event engine.Event) {
	_ = s.Append(event)
}

// Replay returns every event recorded for a run, in append order.
func (s *Sink) Replay(runID string) ([]engine.Event, error) {
	return ReplayEvents(s.eventPath(runID))
}

// Tail returns the last n events recorded for a run. n <= 0 returns all.
func (s *Sink) Tail(runID string, n int) ([]engine.Event, error) {
	return TailEvents(s.eventPath(runID), n)
}

// CloseRun closes the open log for a finished run, if any.
func (s *Sink) CloseRun(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.logs[runID]
	if !ok {
		return nil
	}
	delete(s.logs, runID)
	return log.Close()
}

// Close closes every open run log.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for runID, log := range s.logs {
		if err := log.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close log for run %s: %w", runID, err)
		}
	}
	s.logs = make(map[string]*RunLog)
	return firstErr
}

func (s *Sink) eventPath(runID string) string {
	return filepath.Join(s.root, "runs", runID, "events.jsonl")
}
