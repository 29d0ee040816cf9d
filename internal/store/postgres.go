package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses. Tests substitute a mock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore backs the run log with a shared database, for deployments
// where several operators need one audit trail.
type PostgresStore struct {
	pool Pool
}

// NewPostgresStore connects a pool to databaseURL.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "store: parse postgres url")
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "store: connect postgres")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool wraps an existing pool. Used by tests.
func NewPostgresStoreWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the runs table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          UUID PRIMARY KEY,
    verb        TEXT NOT NULL,
    scorecard   TEXT NOT NULL DEFAULT '',
    score       TEXT NOT NULL DEFAULT '',
    parameters  TEXT NOT NULL DEFAULT '',
    item_count  INTEGER NOT NULL DEFAULT 0,
    duration_ms BIGINT NOT NULL DEFAULT 0,
    error       TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
)`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return eris.Wrap(err, "store: migrate postgres")
	}
	if _, err := s.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_runs_verb ON runs(verb)`); err != nil {
		return eris.Wrap(err, "store: index runs")
	}
	return nil
}

// RecordRun inserts one run, assigning an id and timestamp when absent.
func (s *PostgresStore) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO runs (id, verb, scorecard, score, parameters, item_count, duration_ms, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.pool.Exec(ctx, query,
		run.ID, run.Verb, run.Scorecard, run.Score, run.Parameters,
		run.ItemCount, run.DurationMS, run.Error, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "store: record run %s", run.Verb)
	}
	return nil
}

// ListRuns returns runs newest first, optionally filtered by verb.
func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
SELECT id, verb, scorecard, score, parameters, item_count, duration_ms, error, created_at
FROM runs`
	args := []any{}
	if filter.Verb != "" {
		query += " WHERE verb = $1 ORDER BY created_at DESC LIMIT $2"
		args = append(args, filter.Verb, limit)
	} else {
		query += " ORDER BY created_at DESC LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
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

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
