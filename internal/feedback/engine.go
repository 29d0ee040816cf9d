// Package feedback retrieves reviewer feedback from the dashboard with
// index-aware pagination, a filter-query fallback, value filtering, and
// edit-comment-aware limits.
package feedback

import (
	"context"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AnthusAI/plexus-feedback/internal/sampling"
	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
)

// Engine orchestrates feedback retrieval for the analysis and dataset layers.
type Engine struct {
	client   dashboard.Client
	pageSize int
}

// Option configures the Engine.
type Option func(*Engine)

// WithPageSize overrides the index-query page size (default 100).
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// NewEngine creates a retrieval engine backed by the given client.
func NewEngine(client dashboard.Client, opts ...Option) *Engine {
	e := &Engine{client: client, pageSize: 100}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FindOptions describes one retrieval request.
type FindOptions struct {
	AccountID   string
	ScorecardID string
	ScoreID     string

	// Days selects [now-Days, now] UTC when Start/End are zero.
	Days  int
	Start time.Time
	End   time.Time

	// InitialValue and FinalValue are answer-equality filters applied after
	// the fetch, compared under Normalize (case- and whitespace-insensitive).
	InitialValue string
	FinalValue   string

	// Limit caps the result; the edit-comment priority rule decides which
	// items fill the slots unless PrioritizeEditComments is disabled.
	Limit                  int
	PrioritizeEditComments bool

	// WithItem requests the nested item relation in the same query.
	WithItem bool

	// Rand overrides the sampling source; nil uses the global source.
	Rand *rand.Rand
}

// Resolve returns the effective [start, end] window for the options.
func (o FindOptions) Resolve(now time.Time) (time.Time, time.Time) {
	if !o.Start.IsZero() || !o.End.IsZero() {
		start, end := o.Start, o.End
		if end.IsZero() {
			end = now.UTC()
		}
		return start.UTC(), end.UTC()
	}
	days := o.Days
	if days <= 0 {
		days = 30
	}
	end := now.UTC()
	return end.AddDate(0, 0, -days), end
}

// Find retrieves all matching feedback in the window, applies the value
// filters, and enforces the limit with edit-comment prioritization. An empty
// result is an empty slice, not an error.
func (e *Engine) Find(ctx context.Context, opts FindOptions) ([]dashboard.FeedbackItem, error) {
	start, end := opts.Resolve(time.Now())

	items, err := e.fetchAll(ctx, opts, start, end)
	if err != nil {
		return nil, err
	}

	items = filterValues(items, opts.InitialValue, opts.FinalValue)

	if opts.Limit > 0 && len(items) > opts.Limit {
		items = sampling.Limit(items, opts.Limit, opts.PrioritizeEditComments, opts.Rand)
	}

	return items, nil
}

// fetchAll drains the composite-index query; on index failure it switches to
// the generic filter list, logs a warning, and sorts the scan client-side so
// downstream consumers see updatedAt DESC on both paths.
func (e *Engine) fetchAll(ctx context.Context, opts FindOptions, start, end time.Time) ([]dashboard.FeedbackItem, error) {
	items, err := e.fetchIndexed(ctx, opts, start, end)
	if err == nil {
		return items, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	zap.L().Warn("feedback index query failed, falling back to filter scan",
		zap.String("scorecardId", opts.ScorecardID),
		zap.String("scoreId", opts.ScoreID),
		zap.Error(err),
	)

	items, err = e.fetchFallback(ctx, opts, start)
	if err != nil {
		return nil, eris.Wrap(err, "feedback: fallback query")
	}

	// The fallback window only bounds the lower edge server-side.
	filtered := items[:0]
	for _, it := range items {
		if !it.UpdatedAt.After(end) {
			filtered = append(filtered, it)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].UpdatedAt.After(filtered[j].UpdatedAt)
	})
	return filtered, nil
}

func (e *Engine) fetchIndexed(ctx context.Context, opts FindOptions, start, end time.Time) ([]dashboard.FeedbackItem, error) {
	var all []dashboard.FeedbackItem
	nextToken := ""
	for {
		page, err := e.client.ListFeedbackByScore(ctx, dashboard.FeedbackQuery{
			AccountID:   opts.AccountID,
			ScorecardID: opts.ScorecardID,
			ScoreID:     opts.ScoreID,
			Start:       start,
			End:         end,
			Limit:       e.pageSize,
			NextToken:   nextToken,
			WithItem:    opts.WithItem,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.NextToken == "" {
			return all, nil
		}
		nextToken = page.NextToken
	}
}

func (e *Engine) fetchFallback(ctx context.Context, opts FindOptions, start time.Time) ([]dashboard.FeedbackItem, error) {
	var all []dashboard.FeedbackItem
	nextToken := ""
	for {
		page, err := e.client.ListFeedbackFiltered(ctx, dashboard.FeedbackFilter{
			AccountID:    opts.AccountID,
			ScorecardID:  opts.ScorecardID,
			ScoreID:      opts.ScoreID,
			UpdatedAfter: start,
			Limit:        1000,
			NextToken:    nextToken,
			WithItem:     opts.WithItem,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.NextToken == "" {
			return all, nil
		}
		nextToken = page.NextToken
	}
}

// filterValues keeps items whose answers match the requested values under the
// shared normalization rule. Empty filter strings match everything.
func filterValues(items []dashboard.FeedbackItem, initial, final string) []dashboard.FeedbackItem {
	if initial == "" && final == "" {
		return items
	}
	wantInitial := dashboard.Normalize(initial)
	wantFinal := dashboard.Normalize(final)

	out := items[:0]
	for _, it := range items {
		if initial != "" && dashboard.Normalize(it.InitialAnswerValue) != wantInitial {
			continue
		}
		if final != "" && dashboard.Normalize(it.FinalAnswerValue) != wantFinal {
			continue
		}
		out = append(out, it)
	}
	return out
}
