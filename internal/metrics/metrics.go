// Package metrics holds the pure agreement-analysis kernel: confusion matrix
// construction, precision/recall, Gwet's AC1, and class-balance checks. All
// functions are deterministic and side-effect-free; inputs are parallel slices
// of reference (final) and prediction (initial) labels.
package metrics

import "sort"

// ConfusionRow counts, for one actual class, how predictions distributed
// across all classes.
type ConfusionRow struct {
	ActualClassLabel     string         `json:"actualClassLabel" yaml:"actualClassLabel"`
	PredictedClassCounts map[string]int `json:"predictedClassCounts" yaml:"predictedClassCounts"`
}

// ConfusionMatrix pairs the sorted label set with one row per actual class.
type ConfusionMatrix struct {
	Labels []string       `json:"labels" yaml:"labels"`
	Matrix []ConfusionRow `json:"matrix" yaml:"matrix"`
}

// LabelCount is one entry of a label distribution.
type LabelCount struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// Labels returns the sorted union of labels present in either slice.
func Labels(reference, prediction []string) []string {
	seen := map[string]struct{}{}
	for _, v := range reference {
		seen[v] = struct{}{}
	}
	for _, v := range prediction {
		seen[v] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Confusion builds the confusion matrix over the string forms of the values.
// Row order follows the sorted label set; every row carries a count for every
// label, zero included.
func Confusion(reference, prediction []string) ConfusionMatrix {
	labels := Labels(reference, prediction)

	rows := make([]ConfusionRow, len(labels))
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
		counts := make(map[string]int, len(labels))
		for _, p := range labels {
			counts[p] = 0
		}
		rows[i] = ConfusionRow{ActualClassLabel: l, PredictedClassCounts: counts}
	}

	for i := range reference {
		rows[index[reference[i]]].PredictedClassCounts[prediction[i]]++
	}

	return ConfusionMatrix{Labels: labels, Matrix: rows}
}

// Distribution counts occurrences of each value, sorted by label for stable
// serialization.
func Distribution(values []string) []LabelCount {
	counts := map[string]int{}
	for _, v := range values {
		counts[v]++
	}
	out := make([]LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Accuracy returns the percentage of positions where reference and prediction
// agree. Empty input yields 0.
func Accuracy(reference, prediction []string) float64 {
	if len(reference) == 0 {
		return 0
	}
	agree := 0
	for i := range reference {
		if reference[i] == prediction[i] {
			agree++
		}
	}
	return float64(agree) / float64(len(reference)) * 100
}

// PrecisionRecall computes precision and recall as percentages.
//
// With exactly two labels the first label in sorted order is treated as the
// positive class. That convention matches historical behavior but is
// arbitrary; rubrics with unintuitive label ordering can see precision and
// recall swapped relative to intent.
//
// With three or more labels the per-class values are macro-averaged with an
// unweighted mean. Zero denominators contribute 0, never NaN.
func PrecisionRecall(reference, prediction []string) (precision, recall float64) {
	labels := Labels(reference, prediction)
	if len(labels) == 0 {
		return 0, 0
	}

	if len(labels) == 2 {
		positive := labels[0]
		p, r := classPrecisionRecall(reference, prediction, positive)
		return p * 100, r * 100
	}

	var pSum, rSum float64
	for _, label := range labels {
		p, r := classPrecisionRecall(reference, prediction, label)
		pSum += p
		rSum += r
	}
	n := float64(len(labels))
	return pSum / n * 100, rSum / n * 100
}

func classPrecisionRecall(reference, prediction []string, label string) (precision, recall float64) {
	var tp, fp, fn int
	for i := range reference {
		predPos := prediction[i] == label
		refPos := reference[i] == label
		switch {
		case predPos && refPos:
			tp++
		case predPos && !refPos:
			fp++
		case !predPos && refPos:
			fn++
		}
	}
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	return precision, recall
}

// GwetAC1 computes Gwet's chance-corrected agreement coefficient:
//
//	AC1 = (p_a - p_e) / (1 - p_e)
//
// where p_a is observed agreement and p_e = sum_k p_k*(1-p_k) / (K-1) over
// the K classes present, using the empirical marginal p_k averaged across
// both raters. Returns nil when fewer than two classes are present or the
// input is empty; AC1 is undefined there.
func GwetAC1(reference, prediction []string) *float64 {
	n := len(reference)
	if n == 0 {
		return nil
	}

	labels := Labels(reference, prediction)
	k := len(labels)
	if k < 2 {
		return nil
	}

	agree := 0
	for i := range reference {
		if reference[i] == prediction[i] {
			agree++
		}
	}
	pa := float64(agree) / float64(n)

	var pe float64
	for _, label := range labels {
		count := 0
		for i := range reference {
			if reference[i] == label {
				count++
			}
			if prediction[i] == label {
				count++
			}
		}
		pk := float64(count) / float64(2*n)
		pe += pk * (1 - pk)
	}
	pe /= float64(k - 1)

	if 1-pe == 0 {
		return nil
	}
	ac1 := (pa - pe) / (1 - pe)
	return &ac1
}

// Balance classifies a label distribution.
type Balance int

const (
	// Balanced means every class count is within 20% of the uniform share.
	Balanced Balance = iota
	// Imbalanced means at least one class deviates beyond that tolerance.
	Imbalanced
	// SingleClass means only one label is present; balance does not apply.
	SingleClass
)

// CheckBalance applies the 20%-of-uniform-share tolerance per class.
func CheckBalance(dist []LabelCount) Balance {
	if len(dist) <= 1 {
		return SingleClass
	}
	total := 0
	for _, d := range dist {
		total += d.Count
	}
	expected := float64(total) / float64(len(dist))
	tolerance := 0.2 * expected
	for _, d := range dist {
		diff := float64(d.Count) - expected
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			return Imbalanced
		}
	}
	return Balanced
}
