package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteRecordAndList(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	run := &Run{
		Verb:       "summary",
		Scorecard:  "Quality Assurance",
		Score:      "Greeting",
		Parameters: `{"days":14}`,
		ItemCount:  42,
		DurationMS: 1200,
	}
	require.NoError(t, s.RecordRun(ctx, run))
	assert.NotEmpty(t, run.ID, "an id is assigned on insert")
	assert.False(t, run.CreatedAt.IsZero())

	runs, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "summary", runs[0].Verb)
	assert.Equal(t, `{"days":14}`, runs[0].Parameters)
	assert.Equal(t, 42, runs[0].ItemCount)
	assert.Equal(t, int64(1200), runs[0].DurationMS)
}

func TestSQLiteListNewestFirst(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordRun(ctx, &Run{
			Verb:      "find",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.True(t, runs[0].CreatedAt.After(runs[1].CreatedAt))
	assert.True(t, runs[1].CreatedAt.After(runs[2].CreatedAt))
}

func TestSQLiteListVerbFilterAndLimit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for _, verb := range []string{"summary", "find", "summary", "cost"} {
		require.NoError(t, s.RecordRun(ctx, &Run{Verb: verb}))
	}

	runs, err := s.ListRuns(ctx, RunFilter{Verb: "summary"})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, run := range runs {
		assert.Equal(t, "summary", run.Verb)
	}

	runs, err = s.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLiteRecordsFailures(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, &Run{Verb: "dataset build", Error: "scorecard not found"}))

	runs, err := s.ListRuns(ctx, RunFilter{Verb: "dataset build"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "scorecard not found", runs[0].Error)
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "mysql", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpenSQLiteDefault(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), "", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	// Open already migrated; the table accepts inserts immediately.
	require.NoError(t, s.RecordRun(context.Background(), &Run{Verb: "serve"}))
}
