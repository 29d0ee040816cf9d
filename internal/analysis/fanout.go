package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AnthusAI/plexus-feedback/internal/feedback"
)

// DefaultConcurrency bounds the per-scorecard fan-out; MaxConcurrency is the
// configuration ceiling. The feedback path tolerates a wider bound because
// each scorecard is a single paginated read.
const (
	DefaultConcurrency  = 4
	FeedbackConcurrency = 10
	MaxConcurrency      = 16
)

// ScorecardEntry is one scorecard's slot in the all-scorecards result. A
// failed scorecard carries Error and no summary; the batch continues.
type ScorecardEntry struct {
	ScorecardID   string         `json:"scorecard_id" yaml:"scorecard_id"`
	ScorecardName string         `json:"scorecard_name" yaml:"scorecard_name"`
	TotalItems    int            `json:"total_items" yaml:"total_items"`
	Accuracy      *float64       `json:"accuracy,omitempty" yaml:"accuracy,omitempty"`
	AC1           *float64       `json:"ac1,omitempty" yaml:"ac1,omitempty"`
	Summary       *SummaryResult `json:"summary,omitempty" yaml:"summary,omitempty"`
	Error         string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// DateRange reports the analyzed window.
type DateRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
	Days  int    `json:"days" yaml:"days"`
}

// AllScorecardsResult combines per-scorecard summaries for "all" mode.
type AllScorecardsResult struct {
	Mode          string           `json:"mode" yaml:"mode"`
	TotalAnalyzed int              `json:"total_analyzed" yaml:"total_analyzed"`
	WithData      int              `json:"total_scorecards_with_data" yaml:"total_scorecards_with_data"`
	WithoutData   int              `json:"total_scorecards_without_data" yaml:"total_scorecards_without_data"`
	DateRange     DateRange        `json:"date_range" yaml:"date_range"`
	Scorecards    []ScorecardEntry `json:"scorecards" yaml:"scorecards"`
	Message       string           `json:"message,omitempty" yaml:"message,omitempty"`
}

// SummarizeAll runs the summary pipeline for every scorecard in the account
// with bounded concurrency. One scorecard's failure records a placeholder
// entry and never cancels the batch. Results rank by AC1 descending with
// nulls last; zero-item scorecards follow the ranked ones.
func (s *Summarizer) SummarizeAll(ctx context.Context, opts Options, concurrency int) (*AllScorecardsResult, error) {
	if concurrency <= 0 {
		concurrency = FeedbackConcurrency
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}

	scorecards, err := s.client.ListScorecards(ctx, opts.AccountID)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: list scorecards")
	}

	days := opts.Days
	if days <= 0 {
		days = 14
	}
	start, end := feedback.FindOptions{Days: days, Start: opts.Start, End: opts.End}.Resolve(time.Now())

	entries := make([]ScorecardEntry, len(scorecards))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range scorecards {
		g.Go(func() error {
			sc := scorecards[i]
			entry := ScorecardEntry{ScorecardID: sc.ID, ScorecardName: sc.Name}

			scOpts := opts
			scOpts.Scorecard = sc.ID
			scOpts.Score = ""
			summary, err := s.Summarize(gctx, scOpts)
			if err != nil {
				zap.L().Warn("scorecard summary failed",
					zap.String("scorecard", sc.Name),
					zap.Error(err),
				)
				entry.Error = err.Error()
			} else {
				entry.TotalItems = summary.Analysis.TotalItems
				entry.Accuracy = summary.Analysis.Accuracy
				entry.AC1 = summary.Analysis.AC1
				entry.Summary = summary
			}

			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rankEntries(entries)

	result := &AllScorecardsResult{
		Mode:          "all_scorecards",
		TotalAnalyzed: len(entries),
		DateRange: DateRange{
			Start: start.Format(time.RFC3339),
			End:   end.Format(time.RFC3339),
			Days:  days,
		},
		Scorecards: entries,
	}
	for _, e := range entries {
		if e.Error == "" && e.TotalItems > 0 {
			result.WithData++
		} else if e.Error == "" {
			result.WithoutData++
		}
	}
	result.Message = fmt.Sprintf("Analyzed %d scorecards: %d with feedback, %d without",
		result.TotalAnalyzed, result.WithData, result.WithoutData)

	return result, nil
}

// rankEntries orders entries for presentation: scorecards with data by AC1
// descending (nulls last), then zero-item scorecards, then failures.
func rankEntries(entries []ScorecardEntry) {
	class := func(e ScorecardEntry) int {
		switch {
		case e.Error != "":
			return 2
		case e.TotalItems == 0:
			return 1
		default:
			return 0
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ci, cj := class(entries[i]), class(entries[j])
		if ci != cj {
			return ci < cj
		}
		if ci != 0 {
			return false
		}
		ai, aj := entries[i].AC1, entries[j].AC1
		switch {
		case ai == nil && aj == nil:
			return false
		case aj == nil:
			return true
		case ai == nil:
			return false
		default:
			return *ai > *aj
		}
	})
}
