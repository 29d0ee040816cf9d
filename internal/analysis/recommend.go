package analysis

import (
	"fmt"
	"strings"
)

// Recommend synthesizes the rule-based recommendation for one analysis,
// keyed by accuracy bands and AC1 bands. Sentences join with ". " and the
// whole recommendation ends with ".".
func Recommend(a Analysis) string {
	if a.TotalItems == 0 {
		return ""
	}

	var parts []string

	acc := 0.0
	if a.Accuracy != nil {
		acc = *a.Accuracy
	}

	switch {
	case acc < 70:
		parts = append(parts, "Low accuracy detected")
		parts = append(parts, lowAccuracySuggestion(a))
	case acc < 85:
		parts = append(parts, "Moderate accuracy")
		parts = append(parts, "review recent disagreements for prompt or rubric drift")
	default:
		if a.AC1 == nil || *a.AC1 >= 0.6 {
			parts = append(parts, "Good performance - examine edge cases")
		}
	}

	if a.AC1 != nil {
		switch {
		case *a.AC1 < 0:
			parts = append(parts, "Systematic disagreement requires immediate attention")
		case *a.AC1 < 0.4:
			parts = append(parts, "Poor agreement between AI and human reviewers")
		case *a.AC1 < 0.6:
			parts = append(parts, "Fair agreement - investigate borderline cases")
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ". ") + "."
}

// lowAccuracySuggestion picks a followup suggestion matching the dominant
// warning condition.
func lowAccuracySuggestion(a Analysis) string {
	w := a.Warning
	switch {
	case strings.Contains(w, "Single class"):
		return "collect feedback covering more answer values before tuning"
	case strings.Contains(w, "Imbalanced"):
		return "rebalance the feedback sample before drawing conclusions"
	case strings.Contains(w, "Systematic disagreement"):
		return "check whether the score definition matches reviewer expectations"
	default:
		return "review the score configuration against reviewer corrections"
	}
}

// warningKind is one aggregate warning category counted across scores.
type warningKind struct {
	match string // substring of the per-score warning
	label string // rendered name in the scorecard-level warning
}

var warningKinds = []warningKind{
	{match: "Systematic disagreement", label: "disagreement"},
	{match: "Random chance", label: "random chance"},
	{match: "Single class", label: "single class"},
	{match: "Imbalanced", label: "imbalanced"},
	{match: "No feedback items found", label: "no data"},
}

// summaryWarning aggregates per-score warnings into one scorecard-level
// warning: "All scores:" when every score is affected, "1 score:" for one,
// otherwise "N scores with"; three or more kinds render one per line.
func summaryWarning(scores []ScoreSummary) string {
	counts := map[string]int{}
	affected := 0
	for _, s := range scores {
		if s.Analysis.Warning == "" {
			continue
		}
		affected++
		for _, k := range warningKinds {
			if strings.Contains(s.Analysis.Warning, k.match) {
				counts[k.label]++
			}
		}
	}
	if affected == 0 {
		return ""
	}

	var kinds []string
	for _, k := range warningKinds {
		if n := counts[k.label]; n > 0 {
			kinds = append(kinds, fmt.Sprintf("%s (%d)", k.label, n))
		}
	}

	sep := ", "
	if len(kinds) >= 3 {
		sep = "\n"
	}
	list := strings.Join(kinds, sep)

	switch {
	case affected == len(scores):
		return "All scores: " + list
	case affected == 1:
		return "1 score: " + list
	default:
		return fmt.Sprintf("%d scores with ", affected) + list
	}
}
