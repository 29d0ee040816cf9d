// Package sampling selects feedback items under caps, preferring items that
// carry reviewer edit commentary. Items with reviewer prose teach more, so a
// slot never goes to a commentless item while a commented one could fill it.
package sampling

import (
	"math/rand/v2"
	"sort"

	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
)

// Limit returns at most limit items. When the population exceeds the limit
// and prioritizeEdits is set, items with edit comments are taken first; both
// partitions are shuffled independently so the choice within each group is
// random. A nil rng uses the shared global source.
func Limit(items []dashboard.FeedbackItem, limit int, prioritizeEdits bool, rng *rand.Rand) []dashboard.FeedbackItem {
	if limit <= 0 || len(items) <= limit {
		return items
	}

	if !prioritizeEdits {
		sampled := shuffled(items, rng)
		return sampled[:limit]
	}

	var with, without []dashboard.FeedbackItem
	for _, it := range items {
		if it.HasEditComment() {
			with = append(with, it)
		} else {
			without = append(without, it)
		}
	}

	with = shuffled(with, rng)
	if len(with) >= limit {
		return with[:limit]
	}

	without = shuffled(without, rng)
	return append(with, without[:limit-len(with)]...)
}

// CellOptions configures confusion-cell sampling.
type CellOptions struct {
	// PerCell caps each (initial, final) cell; 0 means unlimited.
	PerCell int
	// Total caps the concatenated result; 0 means unlimited.
	Total int
	// PrioritizeEdits applies the edit-comment priority rule at both levels.
	PrioritizeEdits bool
	// Rand overrides the random source; nil uses the shared global source.
	Rand *rand.Rand
}

// ByCell partitions items by their (initial, final) answer pair, caps each
// cell with the priority rule, concatenates the cells in sorted key order,
// and applies the total cap with the same rule. The result size is
// deterministic; item choice is stochastic due to the shuffles.
func ByCell(items []dashboard.FeedbackItem, opts CellOptions) []dashboard.FeedbackItem {
	type cellKey struct{ initial, final string }

	cells := map[cellKey][]dashboard.FeedbackItem{}
	for _, it := range items {
		k := cellKey{initial: it.InitialAnswerValue, final: it.FinalAnswerValue}
		cells[k] = append(cells[k], it)
	}

	keys := make([]cellKey, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].initial != keys[j].initial {
			return keys[i].initial < keys[j].initial
		}
		return keys[i].final < keys[j].final
	})

	var out []dashboard.FeedbackItem
	for _, k := range keys {
		out = append(out, Limit(cells[k], opts.PerCell, opts.PrioritizeEdits, opts.Rand)...)
	}

	return Limit(out, opts.Total, opts.PrioritizeEdits, opts.Rand)
}

func shuffled(items []dashboard.FeedbackItem, rng *rand.Rand) []dashboard.FeedbackItem {
	out := make([]dashboard.FeedbackItem, len(items))
	copy(out, items)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if rng != nil {
		rng.Shuffle(len(out), swap)
	} else {
		rand.Shuffle(len(out), swap)
	}
	return out
}
