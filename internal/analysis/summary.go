// Package analysis computes agreement summaries between AI predictions and
// human reviewer corrections, with warnings, recommendations, and an
// all-scorecards fan-out mode.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AnthusAI/plexus-feedback/internal/feedback"
	"github.com/AnthusAI/plexus-feedback/internal/metrics"
	"github.com/AnthusAI/plexus-feedback/internal/resolver"
	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
)

// Context identifies what a summary covers.
type Context struct {
	AccountID     string `json:"account_id" yaml:"account_id"`
	ScorecardID   string `json:"scorecard_id" yaml:"scorecard_id"`
	ScorecardName string `json:"scorecard_name" yaml:"scorecard_name"`
	ScoreID       string `json:"score_id,omitempty" yaml:"score_id,omitempty"`
	ScoreName     string `json:"score_name,omitempty" yaml:"score_name,omitempty"`
	StartDate     string `json:"start_date" yaml:"start_date"`
	EndDate       string `json:"end_date" yaml:"end_date"`
	TotalItems    int    `json:"total_items" yaml:"total_items"`
}

// Analysis holds the agreement metrics for one population of answer pairs.
type Analysis struct {
	TotalItems    int      `json:"total_items" yaml:"total_items"`
	Agreements    int      `json:"agreements" yaml:"agreements"`
	Disagreements int      `json:"disagreements" yaml:"disagreements"`
	Accuracy      *float64 `json:"accuracy" yaml:"accuracy"`
	AC1           *float64 `json:"ac1" yaml:"ac1"`
	Precision     *float64 `json:"precision" yaml:"precision"`
	Recall        *float64 `json:"recall" yaml:"recall"`

	ConfusionMatrix     *metrics.ConfusionMatrix `json:"confusion_matrix,omitempty" yaml:"confusion_matrix,omitempty"`
	FinalDistribution   []metrics.LabelCount     `json:"class_distribution,omitempty" yaml:"class_distribution,omitempty"`
	InitialDistribution []metrics.LabelCount     `json:"predicted_class_distribution,omitempty" yaml:"predicted_class_distribution,omitempty"`

	Warning string `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// ScoreSummary is the per-score entry of a scorecard-level summary.
type ScoreSummary struct {
	ScoreID        string   `json:"score_id" yaml:"score_id"`
	ScoreName      string   `json:"score_name" yaml:"score_name"`
	Analysis       Analysis `json:"analysis" yaml:"analysis"`
	Recommendation string   `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
}

// SummaryResult is the structured output of one summarize operation.
type SummaryResult struct {
	Context        Context        `json:"context" yaml:"context"`
	Analysis       Analysis       `json:"analysis" yaml:"analysis"`
	Recommendation string         `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
	Scores         []ScoreSummary `json:"scores,omitempty" yaml:"scores,omitempty"`
	Message        string         `json:"message,omitempty" yaml:"message,omitempty"`
}

// Options selects what to summarize.
type Options struct {
	AccountID string
	Scorecard string // id, external id, key, or name
	Score     string // optional; empty enumerates all scores
	Days      int
	Start     time.Time
	End       time.Time
}

// Summarizer runs the agreement analysis pipeline.
type Summarizer struct {
	client   dashboard.Client
	resolver *resolver.Resolver
	engine   *feedback.Engine
}

// NewSummarizer wires the pipeline over one dashboard client.
func NewSummarizer(client dashboard.Client) *Summarizer {
	return &Summarizer{
		client:   client,
		resolver: resolver.New(client),
		engine:   feedback.NewEngine(client),
	}
}

// Summarize resolves the identifiers, retrieves all feedback in range, and
// computes the agreement summary. With no specific score, every score with an
// external id is analyzed in section order and pooled for the headline
// analysis.
func (s *Summarizer) Summarize(ctx context.Context, opts Options) (*SummaryResult, error) {
	if strings.TrimSpace(opts.Scorecard) == "" {
		return nil, eris.New("analysis: scorecard is required")
	}

	days := opts.Days
	if days <= 0 {
		days = 14
	}

	sc, err := s.resolver.Scorecard(ctx, opts.AccountID, opts.Scorecard)
	if err != nil {
		return nil, err
	}

	result := &SummaryResult{
		Context: Context{
			AccountID:     opts.AccountID,
			ScorecardID:   sc.ID,
			ScorecardName: sc.Name,
		},
	}

	var targets []dashboard.Score
	if opts.Score != "" {
		score, err := s.resolver.Score(sc, opts.Score)
		if err != nil {
			return nil, err
		}
		targets = []dashboard.Score{*score}
		result.Context.ScoreID = score.ID
		result.Context.ScoreName = score.Name
	} else {
		targets = dashboard.EnumerateScores(sc)
	}

	findOpts := feedback.FindOptions{
		AccountID:   opts.AccountID,
		ScorecardID: sc.ID,
		Days:        days,
		Start:       opts.Start,
		End:         opts.End,
	}
	start, end := findOpts.Resolve(time.Now())
	result.Context.StartDate = start.Format(time.RFC3339)
	result.Context.EndDate = end.Format(time.RFC3339)

	var pooledRef, pooledPred []string
	for _, score := range targets {
		findOpts.ScoreID = score.ID
		items, err := s.engine.Find(ctx, findOpts)
		if err != nil {
			return nil, eris.Wrapf(err, "analysis: feedback for score %s", score.Name)
		}

		ref, pred := answerPairs(items)
		pooledRef = append(pooledRef, ref...)
		pooledPred = append(pooledPred, pred...)

		entry := ScoreSummary{
			ScoreID:   score.ID,
			ScoreName: score.Name,
			Analysis:  Analyze(ref, pred),
		}
		entry.Recommendation = Recommend(entry.Analysis)
		result.Scores = append(result.Scores, entry)

		zap.L().Debug("score analyzed",
			zap.String("score", score.Name),
			zap.Int("pairs", len(ref)),
		)
	}

	result.Analysis = Analyze(pooledRef, pooledPred)
	result.Context.TotalItems = result.Analysis.TotalItems
	result.Recommendation = Recommend(result.Analysis)

	if len(targets) > 1 {
		result.Analysis.Warning = summaryWarning(result.Scores)
	}
	if result.Analysis.TotalItems == 0 {
		result.Message = "No feedback items matched the requested filters"
	}

	return result, nil
}

// answerPairs keeps only items where both answers are present. The remote
// stores missing answers as null, which decodes to the empty string.
func answerPairs(items []dashboard.FeedbackItem) (reference, prediction []string) {
	for _, it := range items {
		if it.InitialAnswerValue == "" || it.FinalAnswerValue == "" {
			continue
		}
		reference = append(reference, it.FinalAnswerValue)
		prediction = append(prediction, it.InitialAnswerValue)
	}
	return reference, prediction
}

// Analyze computes the full metric set for one pair population.
func Analyze(reference, prediction []string) Analysis {
	a := Analysis{TotalItems: len(reference)}
	if a.TotalItems == 0 {
		a.Warning = "No feedback items found"
		return a
	}

	for i := range reference {
		if reference[i] == prediction[i] {
			a.Agreements++
		}
	}
	a.Disagreements = a.TotalItems - a.Agreements

	acc := metrics.Accuracy(reference, prediction)
	a.Accuracy = &acc
	a.AC1 = metrics.GwetAC1(reference, prediction)

	p, r := metrics.PrecisionRecall(reference, prediction)
	a.Precision = &p
	a.Recall = &r

	cm := metrics.Confusion(reference, prediction)
	a.ConfusionMatrix = &cm
	a.FinalDistribution = metrics.Distribution(reference)
	a.InitialDistribution = metrics.Distribution(prediction)

	a.Warning = warningFor(a)
	return a
}

// warningFor composes the per-score warning phrases, joined by "; ".
func warningFor(a Analysis) string {
	var parts []string
	if a.AC1 != nil {
		if *a.AC1 < 0 {
			parts = append(parts, "Systematic disagreement")
		} else if *a.AC1 == 0 {
			parts = append(parts, "Random chance agreement")
		}
	}
	switch metrics.CheckBalance(a.FinalDistribution) {
	case metrics.SingleClass:
		if len(a.FinalDistribution) == 1 {
			parts = append(parts, fmt.Sprintf("Single class (%s)", a.FinalDistribution[0].Label))
		}
	case metrics.Imbalanced:
		parts = append(parts, "Imbalanced classes")
	}
	return strings.Join(parts, "; ")
}
