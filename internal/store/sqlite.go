package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the default zero-dependency backend, a single local file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: open sqlite %s", path)
	}

	// Single writer; WAL keeps reads cheap while a run is being recorded.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: %s", pragma)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate creates the runs table if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    verb        TEXT NOT NULL,
    scorecard   TEXT NOT NULL DEFAULT '',
    score       TEXT NOT NULL DEFAULT '',
    parameters  TEXT NOT NULL DEFAULT '',
    item_count  INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    error       TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_verb ON runs(verb);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return eris.Wrap(err, "store: migrate sqlite")
	}
	return nil
}

// RecordRun inserts one run, assigning an id and timestamp when absent.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO runs (id, verb, scorecard, score, parameters, item_count, duration_ms, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.Verb, run.Scorecard, run.Score, run.Parameters,
		run.ItemCount, run.DurationMS, run.Error, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "store: record run %s", run.Verb)
	}
	return nil
}

// ListRuns returns runs newest first, optionally filtered by verb.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
SELECT id, verb, scorecard, score, parameters, item_count, duration_ms, error, created_at
FROM runs`
	args := []any{}
	if filter.Verb != "" {
		query += " WHERE verb = ?"
		args = append(args, filter.Verb)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.Verb, &run.Scorecard, &run.Score, &run.Parameters,
			&run.ItemCount, &run.DurationMS, &run.Error, &run.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "store: scan run")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "store: iterate runs")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
