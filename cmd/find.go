package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/AnthusAI/plexus-feedback/internal/feedback"
	"github.com/AnthusAI/plexus-feedback/internal/resolver"
	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
)

var findFlags struct {
	scorecard    string
	score        string
	days         int
	startDate    string
	endDate      string
	initialValue string
	finalValue   string
	limit        int
	noPrioritize bool
}

// findResult is the structured output of one find invocation.
type findResult struct {
	AccountID     string                   `json:"account_id" yaml:"account_id"`
	ScorecardID   string                   `json:"scorecard_id" yaml:"scorecard_id"`
	ScorecardName string                   `json:"scorecard_name" yaml:"scorecard_name"`
	ScoreID       string                   `json:"score_id" yaml:"score_id"`
	ScoreName     string                   `json:"score_name" yaml:"score_name"`
	Count         int                      `json:"count" yaml:"count"`
	Items         []dashboard.FeedbackItem `json:"items" yaml:"items"`
}

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Search feedback records for a score",
	Long:  "Retrieves feedback in the window, optionally filtered by initial and final answer values. With a limit, records carrying reviewer edit commentary fill the slots first.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		started := time.Now()

		start, err := parseDate(findFlags.startDate)
		if err != nil {
			return fail(err)
		}
		end, err := parseDate(findFlags.endDate)
		if err != nil {
			return fail(err)
		}

		client := newClient()
		res := resolver.New(client)

		sc, err := res.Scorecard(ctx, cfg.Dashboard.AccountID, findFlags.scorecard)
		if err != nil {
			recordRun(ctx, "find", findFlags.scorecard, findFlags.score, findFlags, 0, started, err)
			return fail(err)
		}
		score, err := res.Score(sc, findFlags.score)
		if err != nil {
			recordRun(ctx, "find", findFlags.scorecard, findFlags.score, findFlags, 0, started, err)
			return fail(err)
		}

		engine := feedback.NewEngine(client, feedback.WithPageSize(cfg.Feedback.PageSize))
		items, err := engine.Find(ctx, feedback.FindOptions{
			AccountID:              cfg.Dashboard.AccountID,
			ScorecardID:            sc.ID,
			ScoreID:                score.ID,
			Days:                   findFlags.days,
			Start:                  start,
			End:                    end,
			InitialValue:           findFlags.initialValue,
			FinalValue:             findFlags.finalValue,
			Limit:                  findFlags.limit,
			PrioritizeEditComments: !findFlags.noPrioritize,
		})
		recordRun(ctx, "find", findFlags.scorecard, findFlags.score, findFlags, len(items), started, err)
		if err != nil {
			return fail(err)
		}

		result := findResult{
			AccountID:     cfg.Dashboard.AccountID,
			ScorecardID:   sc.ID,
			ScorecardName: sc.Name,
			ScoreID:       score.ID,
			ScoreName:     score.Name,
			Count:         len(items),
			Items:         items,
		}
		return printResult(result,
			"Feedback for "+sc.Name+" / "+score.Name)
	},
}

func init() {
	findCmd.Flags().StringVar(&findFlags.scorecard, "scorecard", "", "scorecard id, external id, key, or name")
	findCmd.Flags().StringVar(&findFlags.score, "score", "", "score id, name, key, or external id")
	findCmd.Flags().IntVar(&findFlags.days, "days", 0, "window in days (default 30)")
	findCmd.Flags().StringVar(&findFlags.startDate, "start-date", "", "window start (YYYY-MM-DD)")
	findCmd.Flags().StringVar(&findFlags.endDate, "end-date", "", "window end (YYYY-MM-DD)")
	findCmd.Flags().StringVar(&findFlags.initialValue, "initial-value", "", "filter by AI answer value")
	findCmd.Flags().StringVar(&findFlags.finalValue, "final-value", "", "filter by reviewer answer value")
	findCmd.Flags().IntVar(&findFlags.limit, "limit", 0, "max records to return (0 = all)")
	findCmd.Flags().BoolVar(&findFlags.noPrioritize, "no-prioritize-edits", false, "disable edit-comment prioritization when limiting")
	_ = findCmd.MarkFlagRequired("scorecard")
	_ = findCmd.MarkFlagRequired("score")

	rootCmd.AddCommand(findCmd)
}
