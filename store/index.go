// ABOUTME: SQLite-backed run index for fast run queries without replaying event logs.
// ABOUTME: Stores run metadata columns plus the full result document as JSON.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/flumehq/flume/engine"
)

// RunSummary is a row from the runs table for list query results.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	PipelineID string    `json:"pipeline_id"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	ErrorCount int       `json:"error_count"`
}

// RunIndex is a SQLite-backed index of finished runs. It is a queryable
// cache over the JSONL event logs, not the source of truth.
type RunIndex struct {
	db *sql.DB
}

// OpenRunIndex opens or creates a run index database at the given path.
// Runs migrations to ensure the schema is up to date.
func OpenRunIndex(path string) (*RunIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			pipeline_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			error_count INTEGER NOT NULL,
			result TEXT NOT NULL
		);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &RunIndex{db: db}, nil
}

// Close closes the SQLite database connection.
func (idx *RunIndex) Close() error {
	return idx.db.Close()
}

// SaveResult upserts a finished run's result document.
func (idx *RunIndex) SaveResult(result *engine.RunResult) error {
	doc, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}
	_, err = idx.db.Exec(
		`INSERT INTO runs (run_id, pipeline_id, status, started_at, finished_at, error_count, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			status = excluded.status,
			finished_at = excluded.finished_at,
			error_count = excluded.error_count,
			result = excluded.result`,
		result.RunID,
		result.PipelineID,
		string(result.Status),
		result.StartedAt.UTC().Format(time.RFC3339Nano),
		result.FinishedAt.UTC().Format(time.RFC3339Nano),
		len(result.Errors),
		string(doc),
	)
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", result.RunID, err)
	}
	return nil
}

// GetResult fetches a run's full result document. Returns sql.ErrNoRows
// (wrapped) when the run is unknown.
func (idx *RunIndex) GetResult(runID string) (*engine.RunResult, error) {
	var doc string
	err := idx.db.QueryRow("SELECT result FROM runs WHERE run_id = ?", runID).Scan(&doc)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}

	var result engine.RunResult
	if err := json.Unmarshal([]byte(doc), &result); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &result, nil
}

// ListRuns returns run summaries, most recent first. limit <= 0 returns all.
func (idx *RunIndex) ListRuns(limit int) ([]RunSummary, error) {
	query := `SELECT run_id, pipeline_id, status, started_at, finished_at, error_count
		 FROM runs ORDER BY started_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = idx.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = idx.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var started, finished string
		if err := rows.Scan(&r.RunID, &r.PipelineID, &r.Status, &started, &finished, &r.ErrorCount); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at for %s: %w", r.RunID, err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at for %s: %w", r.RunID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
