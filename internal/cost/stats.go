package cost

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// DecimalStats is a five-number summary plus mean and population standard
// deviation over a monetary series. All values serialize as decimal strings.
type DecimalStats struct {
	Min    string `json:"min" yaml:"min"`
	Q1     string `json:"q1" yaml:"q1"`
	Median string `json:"median" yaml:"median"`
	Q3     string `json:"q3" yaml:"q3"`
	Max    string `json:"max" yaml:"max"`
	Mean   string `json:"mean" yaml:"mean"`
	StdDev string `json:"std_dev" yaml:"std_dev"`
}

// FloatStats is the same summary over a count series (llm_calls).
type FloatStats struct {
	Min    float64 `json:"min" yaml:"min"`
	Q1     float64 `json:"q1" yaml:"q1"`
	Median float64 `json:"median" yaml:"median"`
	Q3     float64 `json:"q3" yaml:"q3"`
	Max    float64 `json:"max" yaml:"max"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
}

// percentile interpolates linearly between closest ranks:
// q = sorted[f]*(c-k) + sorted[c]*(k-f) with k=(n-1)*p, f=floor(k), c=f+1
// clipped to the last index. p=0 yields the minimum, p=1 the maximum.
func percentile(sorted []decimal.Decimal, p float64) decimal.Decimal {
	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	if n == 1 {
		return sorted[0]
	}

	k := float64(n-1) * p
	f := math.Floor(k)
	c := f + 1
	if c > float64(n-1) {
		return sorted[n-1]
	}

	lower := sorted[int(f)].Mul(decimal.NewFromFloat(c - k))
	upper := sorted[int(c)].Mul(decimal.NewFromFloat(k - f))
	return lower.Add(upper)
}

// decimalStats computes the summary over an unsorted monetary series.
func decimalStats(values []decimal.Decimal) DecimalStats {
	if len(values) == 0 {
		zero := decimal.Zero.String()
		return DecimalStats{Min: zero, Q1: zero, Median: zero, Q3: zero, Max: zero, Mean: zero, StdDev: zero}
	}

	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	sum := decimal.Zero
	for _, v := range sorted {
		sum = sum.Add(v)
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(sorted))))

	// Standard deviation tolerates float arithmetic; it is a dispersion
	// indicator, not money that adds up anywhere.
	meanF, _ := mean.Float64()
	var ss float64
	for _, v := range sorted {
		f, _ := v.Float64()
		d := f - meanF
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(sorted)))

	return DecimalStats{
		Min:    sorted[0].String(),
		Q1:     percentile(sorted, 0.25).String(),
		Median: percentile(sorted, 0.5).String(),
		Q3:     percentile(sorted, 0.75).String(),
		Max:    sorted[len(sorted)-1].String(),
		Mean:   mean.String(),
		StdDev: decimal.NewFromFloat(std).Round(10).String(),
	}
}

// floatStats computes the summary over a count series.
func floatStats(values []float64) FloatStats {
	if len(values) == 0 {
		return FloatStats{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pct := func(p float64) float64 {
		n := len(sorted)
		if n == 1 {
			return sorted[0]
		}
		k := float64(n-1) * p
		f := math.Floor(k)
		c := f + 1
		if c > float64(n-1) {
			return sorted[n-1]
		}
		return sorted[int(f)]*(c-k) + sorted[int(c)]*(k-f)
	}

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))
	var ss float64
	for _, v := range sorted {
		d := v - mean
		ss += d * d
	}

	return FloatStats{
		Min:    sorted[0],
		Q1:     pct(0.25),
		Median: pct(0.5),
		Q3:     pct(0.75),
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		StdDev: math.Sqrt(ss / float64(len(sorted))),
	}
}
