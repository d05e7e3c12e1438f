package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/healthlens-cli/internal/dataset"
)

// OutlierThreshold is the robust |z| cutoff used by Describe.
const OutlierThreshold = 3.5

// ColumnSummary captures descriptive statistics for one column.
type ColumnSummary struct {
	Name string
	Kind string // numeric|categorical
	Unit string
	// Count of non-NaN values (numeric) or non-empty values (categorical).
	Count int
	// Numeric stats
	Mean, Std                float64
	Min, Q1, Median, Q3, Max float64
	OutliersCount            int
	OutliersMaxAbsZ          float64
	// Categorical
	Unique    int
	TopValues []CategoryCount
}

// CategoryCount is a categorical value with its frequency.
type CategoryCount struct {
	Value string
	Count int
}

// Describe summarizes every numeric and categorical column of t.
func Describe(t *dataset.Table) []ColumnSummary {
	var out []ColumnSummary
	for _, name := range dataset.NumericColumns {
		vals, _ := t.Numeric(name)
		s := ColumnSummary{Name: name, Kind: "numeric"}
		if t != nil && t.Units != nil {
			s.Unit = t.Units[name]
		}
		// Welford
		var n int
		var mean, m2 float64
		var clean []float64
		for _, x := range vals {
			if math.IsNaN(x) {
				continue
			}
			n++
			delta := x - mean
			mean += delta / float64(n)
			m2 += delta * (x - mean)
			clean = append(clean, x)
		}
		s.Count = n
		if n == 0 {
			s.Mean, s.Std = math.NaN(), math.NaN()
			s.Min, s.Q1, s.Median, s.Q3, s.Max = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
			out = append(out, s)
			continue
		}
		s.Mean = mean
		if n > 1 {
			s.Std = math.Sqrt(m2 / float64(n-1))
		}
		sort.Float64s(clean)
		s.Min, s.Max = clean[0], clean[len(clean)-1]
		s.Q1 = quantile(clean, 0.25)
		s.Median = quantile(clean, 0.5)
		s.Q3 = quantile(clean, 0.75)
		if len(clean) >= 8 {
			s.OutliersCount, s.OutliersMaxAbsZ = robustOutliers(clean, OutlierThreshold)
		}
		out = append(out, s)
	}
	for _, name := range []string{dataset.ColGender, dataset.ColLabel, dataset.ColAgeGroup} {
		vals, _ := t.Categorical(name)
		s := ColumnSummary{Name: name, Kind: "categorical"}
		cats := map[string]int{}
		for _, v := range vals {
			if v == "" {
				continue
			}
			s.Count++
			cats[v]++
		}
		tops := make([]CategoryCount, 0, len(cats))
		for k, v := range cats {
			tops = append(tops, CategoryCount{Value: k, Count: v})
		}
		sort.Slice(tops, func(i, j int) bool {
			if tops[i].Count == tops[j].Count {
				return tops[i].Value < tops[j].Value
			}
			return tops[i].Count > tops[j].Count
		})
		if len(tops) > 8 {
			tops = tops[:8]
		}
		s.Unique = len(cats)
		s.TopValues = tops
		out = append(out, s)
	}
	return out
}

// Bin is one histogram bucket [Lower, Upper); the last bin also includes Upper.
type Bin struct {
	Lower, Upper float64
	Count        int
}

// Label renders the bin bounds compactly.
func (b Bin) Label() string {
	return fmt.Sprintf("%.4g-%.4g", b.Lower, b.Upper)
}

// Histogram splits values into equal-width bins over [min, max]. NaN and infinite values
// are ignored.
func Histogram(values []float64, bins int) ([]Bin, error) {
	if bins <= 0 {
		bins = 10
	}
	var clean []float64
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("%w: histogram needs at least one value", ErrInsufficientData)
	}
	lo, hi := clean[0], clean[0]
	for _, v := range clean[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return []Bin{{Lower: lo, Upper: lo + 1, Count: len(clean)}}, nil
	}
	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi
	for _, v := range clean {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out, nil
}

// BoxStats is a five-number summary with Tukey whiskers for one group.
type BoxStats struct {
	Group                    string
	N                        int
	Min, Q1, Median, Q3, Max float64
	LowerWhisker             float64
	UpperWhisker             float64
	Outliers                 []float64
}

// BoxByCategory computes box statistics of metric for each value of key, in
// first-appearance order.
func BoxByCategory(t *dataset.Table, metric, key string) ([]BoxStats, error) {
	vals, ok := t.Numeric(metric)
	if !ok {
		return nil, fmt.Errorf("%w: column %q is not numeric", ErrInvalidGroupKey, metric)
	}
	keys, ok := t.Categorical(key)
	if !ok {
		return nil, fmt.Errorf("%w: column %q is not categorical", ErrInvalidGroupKey, key)
	}
	groups := map[string][]float64{}
	var order []string
	for i, k := range keys {
		if k == "" || math.IsNaN(vals[i]) {
			continue
		}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], vals[i])
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: no %s values to plot", ErrInsufficientData, metric)
	}
	out := make([]BoxStats, 0, len(order))
	for _, k := range order {
		v := groups[k]
		sort.Float64s(v)
		b := BoxStats{Group: k, N: len(v), Min: v[0], Max: v[len(v)-1]}
		b.Q1 = quantile(v, 0.25)
		b.Median = quantile(v, 0.5)
		b.Q3 = quantile(v, 0.75)
		iqr := b.Q3 - b.Q1
		loFence, hiFence := b.Q1-1.5*iqr, b.Q3+1.5*iqr
		b.LowerWhisker, b.UpperWhisker = b.Max, b.Min
		for _, x := range v {
			if x < loFence || x > hiFence {
				b.Outliers = append(b.Outliers, x)
				continue
			}
			b.LowerWhisker = math.Min(b.LowerWhisker, x)
			b.UpperWhisker = math.Max(b.UpperWhisker, x)
		}
		out = append(out, b)
	}
	return out, nil
}

// robustOutliers counts values whose MAD-based z-score exceeds threshold.
func robustOutliers(sorted []float64, threshold float64) (count int, maxAbsZ float64) {
	median, mad := medianMAD(sorted)
	if mad == 0 {
		return 0, 0
	}
	for _, v := range sorted {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > threshold {
			count++
		}
		if az > maxAbsZ {
			maxAbsZ = az
		}
	}
	return count, maxAbsZ
}

// medianMAD computes median and MAD (median absolute deviation) of sorted values.
func medianMAD(sorted []float64) (median, mad float64) {
	if len(sorted) == 0 {
		return 0, 0
	}
	median = quantile(sorted, 0.5)
	dev := make([]float64, len(sorted))
	for i, v := range sorted {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	return median, quantile(dev, 0.5)
}

// quantile uses linear interpolation between closest ranks (numpy's default).
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
