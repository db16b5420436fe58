// ABOUTME: SQLite-backed long-term memory store keyed by user and memory key.
// ABOUTME: Values are JSON-encoded; saves record the run that wrote them.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/flumehq/flume/engine"
)

// SQLiteStore persists user profiles and per-key memory values in SQLite.
// One row per (user, key); values survive across runs.
type SQLiteStore struct {
	db *sql.DB
}

var _ engine.MemoryStore = (*SQLiteStore)(nil)

// OpenSQLite opens or creates a memory database at the given path.
// Runs migrations to ensure the schema is up to date.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			profile TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS memory (
			user_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			run_id TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, key)
		);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PutUser upserts a user's profile document.
func (s *SQLiteStore) PutUser(ctx context.Context, userID string, profile map[string]any) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, profile, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			profile = excluded.profile,
			updated_at = excluded.updated_at`,
		userID, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert user %q: %w", userID, err)
	}
	return nil
}

// Load returns the user's profile and the requested memory keys. An unknown
// user yields an empty profile, not an error. An empty key list loads every
// key stored for the user.
func (s *SQLiteStore) Load(ctx context.Context, userID string, keys []string) (map[string]any, map[string]any, error) {
	user := map[string]any{}

	var profile string
	err := s.db.QueryRowContext(ctx,
		"SELECT profile FROM users WHERE user_id = ?", userID).Scan(&profile)
	switch {
	case err == sql.ErrNoRows:
		// unknown user: empty profile
	case err != nil:
		return nil, nil, fmt.Errorf("query user %q: %w", userID, err)
	default:
		if err := json.Unmarshal([]byte(profile), &user); err != nil {
			return nil, nil, fmt.Errorf("decode profile for %q: %w", userID, err)
		}
	}

	mem, err := s.loadKeys(ctx, userID, keys)
	if err != nil {
		return nil, nil, err
	}
	return user, mem, nil
}

func (s *SQLiteStore) loadKeys(ctx context.Context, userID string, keys []string) (map[string]any, error) {
	var rows *sql.Rows
	var err error
	if len(keys) == 0 {
		rows, err = s.db.QueryContext(ctx,
			"SELECT key, value FROM memory WHERE user_id = ?", userID)
	} else {
		query := "SELECT key, value FROM memory WHERE user_id = ? AND key IN (?" +
			strings.Repeat(",?", len(keys)-1) + ")"
		args := make([]any, 0, len(keys)+1)
		args = append(args, userID)
		for _, k := range keys {
			args = append(args, k)
		}
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("query memory for %q: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	mem := map[string]any{}
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("decode memory value %q: %w", key, err)
		}
		mem[key] = value
	}
	return mem, rows.Err()
}

// Save upserts every key in the patch, recording the run that wrote it.
// The patch is applied in one transaction: all keys land or none do.
func (s *SQLiteStore) Save(ctx context.Context, userID string, patch map[string]any, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for key, value := range patch {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal memory value %q: %w", key, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO memory (user_id, key, value, run_id, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(user_id, key) DO UPDATE SET
				value = excluded.value,
				run_id = excluded.run_id,
				updated_at = excluded.updated_at`,
			userID, key, string(data), runID, now)
		if err != nil {
			return fmt.Errorf("upsert memory key %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}
