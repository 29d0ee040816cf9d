package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/AnthusAI/plexus-feedback/internal/analysis"
)

var summaryFlags struct {
	scorecard string
	score     string
	days      int
	startDate string
	endDate   string
	all       bool
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize reviewer agreement for a scorecard or score",
	Long:  "Computes accuracy, Gwet's AC1, confusion matrix, and class distributions over the feedback window, with warnings and recommendations. With --all, fans out across every scorecard in the account.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		started := time.Now()

		start, err := parseDate(summaryFlags.startDate)
		if err != nil {
			return fail(err)
		}
		end, err := parseDate(summaryFlags.endDate)
		if err != nil {
			return fail(err)
		}

		opts := analysis.Options{
			AccountID: cfg.Dashboard.AccountID,
			Scorecard: summaryFlags.scorecard,
			Score:     summaryFlags.score,
			Days:      summaryFlags.days,
			Start:     start,
			End:       end,
		}

		summarizer := analysis.NewSummarizer(newClient())

		if allScorecards(summaryFlags.all, summaryFlags.scorecard) {
			result, err := summarizer.SummarizeAll(ctx, opts, cfg.Analysis.Concurrency)
			recordRun(ctx, "summary", "all", "", summaryFlags, totalEntries(result), started, err)
			if err != nil {
				return fail(err)
			}
			return printResult(result,
				"Agreement summary across all scorecards",
				"Ranked by AC1 descending; scorecards without data follow.")
		}

		result, err := summarizer.Summarize(ctx, opts)
		recordRun(ctx, "summary", summaryFlags.scorecard, summaryFlags.score, summaryFlags,
			contextItems(result), started, err)
		if err != nil {
			return fail(err)
		}
		return printResult(result,
			"Agreement summary for "+result.Context.ScorecardName,
			"Window: "+result.Context.StartDate+" to "+result.Context.EndDate)
	},
}

func totalEntries(r *analysis.AllScorecardsResult) int {
	if r == nil {
		return 0
	}
	return r.TotalAnalyzed
}

func contextItems(r *analysis.SummaryResult) int {
	if r == nil {
		return 0
	}
	return r.Context.TotalItems
}

func init() {
	summaryCmd.Flags().StringVar(&summaryFlags.scorecard, "scorecard", "", "scorecard id, external id, key, or name")
	summaryCmd.Flags().StringVar(&summaryFlags.score, "score", "", "score id, name, key, or external id (optional)")
	summaryCmd.Flags().IntVar(&summaryFlags.days, "days", 0, "window in days (default 14)")
	summaryCmd.Flags().StringVar(&summaryFlags.startDate, "start-date", "", "window start (YYYY-MM-DD)")
	summaryCmd.Flags().StringVar(&summaryFlags.endDate, "end-date", "", "window end (YYYY-MM-DD)")
	summaryCmd.Flags().BoolVar(&summaryFlags.all, "all", false, "summarize every scorecard in the account")

	rootCmd.AddCommand(summaryCmd)
}
