package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repeat builds n copies of each (ref, pred) pair in order.
func repeat(pairs [][2]string, counts []int) (ref, pred []string) {
	for i, p := range pairs {
		for j := 0; j < counts[i]; j++ {
			ref = append(ref, p[0])
			pred = append(pred, p[1])
		}
	}
	return ref, pred
}

func TestLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		reference  []string
		prediction []string
		want       []string
	}{
		{
			name:       "sorted union",
			reference:  []string{"yes", "no"},
			prediction: []string{"maybe", "yes"},
			want:       []string{"maybe", "no", "yes"},
		},
		{
			name:       "empty",
			reference:  nil,
			prediction: nil,
			want:       []string{},
		},
		{
			name:       "prediction only label",
			reference:  []string{"yes"},
			prediction: []string{"no"},
			want:       []string{"no", "yes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Labels(tt.reference, tt.prediction))
		})
	}
}

func TestConfusion(t *testing.T) {
	t.Parallel()

	ref, pred := repeat([][2]string{
		{"yes", "yes"},
		{"yes", "no"},
		{"no", "no"},
		{"no", "yes"},
	}, []int{40, 10, 30, 20})

	cm := Confusion(ref, pred)
	require.Equal(t, []string{"no", "yes"}, cm.Labels)
	require.Len(t, cm.Matrix, 2)

	assert.Equal(t, "no", cm.Matrix[0].ActualClassLabel)
	assert.Equal(t, map[string]int{"no": 30, "yes": 20}, cm.Matrix[0].PredictedClassCounts)
	assert.Equal(t, "yes", cm.Matrix[1].ActualClassLabel)
	assert.Equal(t, map[string]int{"no": 10, "yes": 40}, cm.Matrix[1].PredictedClassCounts)
}

func TestConfusionZeroFilled(t *testing.T) {
	t.Parallel()

	cm := Confusion([]string{"a", "a"}, []string{"a", "b"})
	require.Equal(t, []string{"a", "b"}, cm.Labels)
	// The "b" actual row exists with all-zero counts even though no item has
	// actual label "b" predicted as "b".
	assert.Equal(t, map[string]int{"a": 0, "b": 0}, cm.Matrix[1].PredictedClassCounts)
}

func TestAccuracy(t *testing.T) {
	t.Parallel()

	ref, pred := repeat([][2]string{
		{"yes", "yes"},
		{"yes", "no"},
		{"no", "no"},
		{"no", "yes"},
	}, []int{40, 10, 30, 20})

	assert.InDelta(t, 70.0, Accuracy(ref, pred), 1e-9)
	assert.Zero(t, Accuracy(nil, nil))
}

func TestDistribution(t *testing.T) {
	t.Parallel()

	dist := Distribution([]string{"no", "yes", "yes", "no", "yes"})
	assert.Equal(t, []LabelCount{{Label: "no", Count: 2}, {Label: "yes", Count: 3}}, dist)
}

func TestPrecisionRecallBinary(t *testing.T) {
	t.Parallel()

	// Positive class is "no" (first in sorted order).
	// TP: ref=no, pred=no -> 30. FP: ref=yes, pred=no -> 10. FN: ref=no, pred=yes -> 20.
	ref, pred := repeat([][2]string{
		{"yes", "yes"},
		{"yes", "no"},
		{"no", "no"},
		{"no", "yes"},
	}, []int{40, 10, 30, 20})

	p, r := PrecisionRecall(ref, pred)
	assert.InDelta(t, 75.0, p, 1e-9)
	assert.InDelta(t, 60.0, r, 1e-9)
}

func TestPrecisionRecallMacro(t *testing.T) {
	t.Parallel()

	// Three classes, perfect agreement: macro precision and recall are 100.
	ref := []string{"a", "b", "c", "a"}
	p, r := PrecisionRecall(ref, ref)
	assert.InDelta(t, 100.0, p, 1e-9)
	assert.InDelta(t, 100.0, r, 1e-9)
}

func TestPrecisionRecallZeroDenominator(t *testing.T) {
	t.Parallel()

	// Class "c" never predicted and never actual beyond one row: zero
	// denominators contribute 0, not NaN.
	ref := []string{"a", "b", "c"}
	pred := []string{"a", "a", "a"}
	p, r := PrecisionRecall(ref, pred)
	assert.False(t, p != p, "precision must not be NaN")
	assert.False(t, r != r, "recall must not be NaN")
}

func TestGwetAC1(t *testing.T) {
	t.Parallel()

	t.Run("balanced binary at 70 percent agreement", func(t *testing.T) {
		t.Parallel()
		ref, pred := repeat([][2]string{
			{"yes", "yes"},
			{"yes", "no"},
			{"no", "no"},
			{"no", "yes"},
		}, []int{40, 10, 30, 20})

		ac1 := GwetAC1(ref, pred)
		require.NotNil(t, ac1)
		// pa = 0.7; marginals p_yes = (50+60)/200 = 0.55, p_no = 0.45;
		// pe = (0.55*0.45 + 0.45*0.55) / 1 = 0.495; ac1 = 0.205/0.505.
		assert.InDelta(t, 0.405940594, *ac1, 1e-6)
	})

	t.Run("perfect agreement", func(t *testing.T) {
		t.Parallel()
		ref := []string{"yes", "no", "yes", "no"}
		ac1 := GwetAC1(ref, ref)
		require.NotNil(t, ac1)
		assert.InDelta(t, 1.0, *ac1, 1e-9)
	})

	t.Run("single class is undefined", func(t *testing.T) {
		t.Parallel()
		ref := []string{"yes", "yes", "yes"}
		assert.Nil(t, GwetAC1(ref, ref))
	})

	t.Run("empty is undefined", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, GwetAC1(nil, nil))
	})

	t.Run("systematic disagreement is negative", func(t *testing.T) {
		t.Parallel()
		ref := []string{"yes", "yes", "no", "no"}
		pred := []string{"no", "no", "yes", "yes"}
		ac1 := GwetAC1(ref, pred)
		require.NotNil(t, ac1)
		assert.Less(t, *ac1, 0.0)
	})
}

func TestCheckBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dist []LabelCount
		want Balance
	}{
		{
			name: "balanced within tolerance",
			dist: []LabelCount{{Label: "no", Count: 50}, {Label: "yes", Count: 50}},
			want: Balanced,
		},
		{
			name: "edge of tolerance",
			dist: []LabelCount{{Label: "no", Count: 40}, {Label: "yes", Count: 60}},
			want: Balanced,
		},
		{
			name: "imbalanced",
			dist: []LabelCount{{Label: "no", Count: 10}, {Label: "yes", Count: 90}},
			want: Imbalanced,
		},
		{
			name: "single class",
			dist: []LabelCount{{Label: "yes", Count: 100}},
			want: SingleClass,
		},
		{
			name: "empty",
			dist: nil,
			want: SingleClass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CheckBalance(tt.dist))
		})
	}
}
