// Package store persists a local log of analysis runs. Every CLI verb and
// HTTP request records what it did, how long it took, and whether it failed,
// so operators can audit usage without the remote service.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// Run is one recorded invocation.
type Run struct {
	ID         string    `json:"id"`
	Verb       string    `json:"verb"`
	Scorecard  string    `json:"scorecard,omitempty"`
	Score      string    `json:"score,omitempty"`
	Parameters string    `json:"parameters,omitempty"`
	ItemCount  int       `json:"item_count"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	Verb  string
	Limit int
}

// Store is the run-log backend.
type Store interface {
	Migrate(ctx context.Context) error
	RecordRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	Close() error
}

const defaultListLimit = 50

// Open builds the backend named by driver ("sqlite" or "postgres") and runs
// its migration.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "", "sqlite":
		s, err = NewSQLiteStore(databaseURL)
	case "postgres":
		s, err = NewPostgresStore(ctx, databaseURL)
	default:
		return nil, eris.New(fmt.Sprintf("store: unknown driver %q", driver))
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
