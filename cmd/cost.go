package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnthusAI/plexus-feedback/internal/cost"
	"github.com/AnthusAI/plexus-feedback/internal/resolver"
)

var costFlags struct {
	scorecard string
	score     string
	days      int
	hours     int
	startDate string
	endDate   string
	groupBy   string
	mode      string
	breakdown bool
	all       bool
}

// costAllResult is the output of all-scorecards cost mode.
type costAllResult struct {
	Mode       string             `json:"mode" yaml:"mode"`
	StartDate  string             `json:"start_date" yaml:"start_date"`
	EndDate    string             `json:"end_date" yaml:"end_date"`
	Scorecards []cost.FanOutEntry `json:"scorecards" yaml:"scorecards"`
}

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Aggregate prediction costs from score results",
	Long:  "Sums and summarizes cost envelopes attached to score results over a window, with optional grouping by scorecard and score. With --all, fans out across every scorecard in the account.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		started := time.Now()
		f := &costFlags

		start, err := parseDate(f.startDate)
		if err != nil {
			return fail(err)
		}
		end, err := parseDate(f.endDate)
		if err != nil {
			return fail(err)
		}
		groupBy, err := cost.ParseGroupBy(f.groupBy)
		if err != nil {
			return fail(err)
		}
		mode, err := cost.ParseMode(f.mode)
		if err != nil {
			return fail(err)
		}

		client := newClient()
		q := cost.Query{
			AccountID: cfg.Dashboard.AccountID,
			Days:      f.days,
			Hours:     f.hours,
			Start:     start,
			End:       end,
			GroupBy:   groupBy,
			Mode:      mode,
			Breakdown: f.breakdown,
		}

		fanAll := allScorecards(f.all, f.scorecard)
		if !fanAll && f.scorecard != "" {
			res := resolver.New(client)
			sc, err := res.Scorecard(ctx, cfg.Dashboard.AccountID, f.scorecard)
			if err != nil {
				recordRun(ctx, "cost", f.scorecard, f.score, f, 0, started, err)
				return fail(err)
			}
			q.ScorecardID = sc.ID
			if f.score != "" {
				score, err := res.Score(sc, f.score)
				if err != nil {
					recordRun(ctx, "cost", f.scorecard, f.score, f, 0, started, err)
					return fail(err)
				}
				q.ScoreID = score.ID
			}
		}

		if fanAll {
			// Each scorecard gets its own analyzer so the parameter caches
			// never interleave across goroutines.
			entries, err := cost.AnalyzeAll(ctx, client, q, cfg.Analysis.Concurrency,
				func(ctx context.Context, scorecardID string) (*cost.Analysis, error) {
					sub := q
					sub.ScorecardID = scorecardID
					return cost.NewAnalyzer(client).Analyze(ctx, sub)
				})
			recordRun(ctx, "cost", "all", "", f, len(entries), started, err)
			if err != nil {
				return fail(err)
			}
			cost.SortEntries(entries)

			result := costAllResult{Mode: "all_scorecards", Scorecards: entries}
			for _, e := range entries {
				if e.Analysis != nil {
					result.StartDate = e.Analysis.StartDate
					result.EndDate = e.Analysis.EndDate
					break
				}
			}
			return printResult(result,
				"Cost breakdown across all scorecards",
				"Ranked by total cost descending; failures last.")
		}

		analysis, err := cost.NewAnalyzer(client).Analyze(ctx, q)
		count := 0
		if analysis != nil {
			count = analysis.Totals.Count
		}
		recordRun(ctx, "cost", f.scorecard, f.score, f, count, started, err)
		if err != nil {
			return fail(err)
		}
		return printResult(analysis,
			"Cost analysis",
			"Window: "+analysis.StartDate+" to "+analysis.EndDate)
	},
}

func init() {
	costCmd.Flags().StringVar(&costFlags.scorecard, "scorecard", "", "restrict to one scorecard (id, external id, key, or name)")
	costCmd.Flags().StringVar(&costFlags.score, "score", "", "restrict to one score (requires --scorecard)")
	costCmd.Flags().IntVar(&costFlags.days, "days", 0, "window in days")
	costCmd.Flags().IntVar(&costFlags.hours, "hours", 0, "window in hours (overrides --days; default 24)")
	costCmd.Flags().StringVar(&costFlags.startDate, "start-date", "", "window start (YYYY-MM-DD)")
	costCmd.Flags().StringVar(&costFlags.endDate, "end-date", "", "window end (YYYY-MM-DD)")
	costCmd.Flags().StringVar(&costFlags.groupBy, "group-by", "", "breakdown dimension: scorecard, score, or scorecard_score")
	costCmd.Flags().StringVar(&costFlags.mode, "mode", "summary", "summary (aggregates only) or detail (include per-record rows)")
	costCmd.Flags().BoolVar(&costFlags.breakdown, "breakdown", false, "include per-group rows in summary mode")
	costCmd.Flags().BoolVar(&costFlags.all, "all", false, "analyze every scorecard in the account")

	rootCmd.AddCommand(costCmd)
}
