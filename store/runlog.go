// ABOUTME: Append-only JSONL event log for a single pipeline run.
// ABOUTME: Provides crash-safe append, sequential replay, and tail reads.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flumehq/flume/engine"
)

// RunLog is an append-only JSONL event log backed by a file.
// Each line is a single JSON-serialized engine event followed by a newline.
type RunLog struct {
	path string
	file *os.File
}

// OpenRunLog opens (or creates) a JSONL log file at the given path.
// Creates parent directories if they do not exist.
// The file is opened in append mode.
func OpenRunLog(path string) (*RunLog, error) {
	parent := filepath.Dir(path)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("create parent dirs: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}

	return &RunLog{path: path, file: file}, nil
}

// Path returns the path to the underlying JSONL file.
func (l *RunLog) Path() string {
	return l.path
}

// Append serializes a single event as one JSON line, writes it with a
// trailing newline, and fsyncs to disk.
func (l *RunLog) Append(event engine.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	line := append(data, '\n')
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("write event line: %w", err)
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}

	return nil
}

// Close closes the underlying file.
func (l *RunLog) Close() error {
	return l.file.Close()
}

// ReplayEvents reads all events from a JSONL file, returning them in order.
// Empty lines are skipped. Returns an empty slice for empty files.
func ReplayEvents(path string) ([]engine.Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run log for replay: %w", err)
	}
	defer func() { _ = file.Close() }()

	var events []engine.Event
	scanner := bufio.NewScanner(file)
	// Increase scanner buffer for potentially large event lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event engine.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return nil, fmt.Errorf("parse event line: %w", err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan run log: %w", err)
	}

	return events, nil
}

// TailEvents returns the last n events from a JSONL file. n <= 0 returns all.
func TailEvents(path string, n int) ([]engine.Event, error) {
	events, err := ReplayEvents(path)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(events) {
		return events, nil
	}
	return events[len(events)-n:], nil
}
