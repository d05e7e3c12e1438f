package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/healthlens-cli/internal/dataset"
)

var (
	// ErrInvalidGroupKey indicates a requested key or metric column does not exist or has the wrong kind.
	ErrInvalidGroupKey = errors.New("invalid group key")
	// ErrInsufficientData indicates too few rows or columns for a summary.
	ErrInsufficientData = errors.New("insufficient data")
)

// Op is an aggregate operation.
type Op string

const (
	OpCount Op = "count"
	OpMean  Op = "mean"
)

// Aggregation requests one aggregate over a column. Column may be empty for OpCount.
type Aggregation struct {
	Column string
	Op     Op
}

// Name returns the output column name, e.g. "count" or "BMI_mean".
func (a Aggregation) Name() string {
	if a.Op == OpCount || a.Column == "" {
		return string(a.Op)
	}
	return a.Column + "_" + string(a.Op)
}

// SummaryTable is the result of AggregateBy. Rows are never mutated after construction
// except by the Sort helpers, which return the receiver for chaining.
type SummaryTable struct {
	GroupKeys []string
	Aggs      []Aggregation
	Rows      []SummaryRow
}

// SummaryRow is one group: its key values, size, and aggregate values aligned with Aggs.
type SummaryRow struct {
	Key    []string
	Size   int
	Values []float64
}

// Columns returns the output column names: group keys followed by aggregate names.
func (s *SummaryTable) Columns() []string {
	out := append([]string{}, s.GroupKeys...)
	for _, a := range s.Aggs {
		out = append(out, a.Name())
	}
	return out
}

// Value returns the aggregate named name (see Aggregation.Name) for row i.
func (s *SummaryTable) Value(i int, name string) (float64, bool) {
	if i < 0 || i >= len(s.Rows) {
		return math.NaN(), false
	}
	for j, a := range s.Aggs {
		if strings.EqualFold(a.Name(), name) {
			return s.Rows[i].Values[j], true
		}
	}
	return math.NaN(), false
}

// Find returns the row whose key equals key.
func (s *SummaryTable) Find(key ...string) (SummaryRow, bool) {
	for _, r := range s.Rows {
		if equalKeys(r.Key, key) {
			return r, true
		}
	}
	return SummaryRow{}, false
}

// TotalSize sums the group sizes.
func (s *SummaryTable) TotalSize() int {
	n := 0
	for _, r := range s.Rows {
		n += r.Size
	}
	return n
}

// SortByAgeGroup orders rows by the numeric lower bound of the AgeGroup key.
// It is a no-op when AgeGroup is not a group key.
func (s *SummaryTable) SortByAgeGroup() *SummaryTable {
	k := -1
	for i, g := range s.GroupKeys {
		if g == dataset.ColAgeGroup {
			k = i
			break
		}
	}
	if k < 0 {
		return s
	}
	sort.SliceStable(s.Rows, func(i, j int) bool {
		a, _ := dataset.ParseAgeGroup(s.Rows[i].Key[k])
		b, _ := dataset.ParseAgeGroup(s.Rows[j].Key[k])
		return a.Lower < b.Lower
	})
	return s
}

// AggregateBy partitions records by the combination of keys and computes aggs per group.
// Groups appear in first-appearance order. Records with an empty key value (e.g. an
// unassigned age group) are left out of the grouping.
func AggregateBy(t *dataset.Table, keys []string, aggs []Aggregation) (*SummaryTable, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no group keys", ErrInvalidGroupKey)
	}
	out := &SummaryTable{GroupKeys: make([]string, len(keys)), Aggs: make([]Aggregation, len(aggs))}

	keyVals := make([][]string, len(keys))
	for i, k := range keys {
		name, ok := dataset.ColumnName(k)
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidGroupKey, k)
		}
		out.GroupKeys[i] = name
		if vals, ok := t.Categorical(name); ok {
			keyVals[i] = vals
			continue
		}
		nums, _ := t.Numeric(name)
		vals := make([]string, len(nums))
		for j, x := range nums {
			if !math.IsNaN(x) {
				vals[j] = strconv.FormatFloat(x, 'f', -1, 64)
			}
		}
		keyVals[i] = vals
	}

	metricVals := make([][]float64, len(aggs))
	for i, a := range aggs {
		switch a.Op {
		case OpCount:
			if a.Column != "" {
				name, ok := dataset.ColumnName(a.Column)
				if !ok {
					return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidGroupKey, a.Column)
				}
				a.Column = name
			}
		case OpMean:
			name, ok := dataset.ColumnName(a.Column)
			if !ok {
				return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidGroupKey, a.Column)
			}
			vals, ok := t.Numeric(name)
			if !ok {
				return nil, fmt.Errorf("%w: column %q is not numeric", ErrInvalidGroupKey, name)
			}
			a.Column = name
			metricVals[i] = vals
		default:
			return nil, fmt.Errorf("%w: unsupported op %q", ErrInvalidGroupKey, a.Op)
		}
		out.Aggs[i] = a
	}

	type acc struct {
		size int
		sum  []float64
		cnt  []int
	}
	index := map[string]int{}
	var accs []*acc
	for r := 0; r < t.Len(); r++ {
		parts := make([]string, len(keys))
		skip := false
		for i := range keys {
			v := keyVals[i][r]
			if v == "" {
				skip = true
				break
			}
			parts[i] = v
		}
		if skip {
			continue
		}
		id := strings.Join(parts, "\x1f")
		gi, ok := index[id]
		if !ok {
			gi = len(accs)
			index[id] = gi
			accs = append(accs, &acc{sum: make([]float64, len(aggs)), cnt: make([]int, len(aggs))})
			out.Rows = append(out.Rows, SummaryRow{Key: parts})
		}
		a := accs[gi]
		a.size++
		for i, vals := range metricVals {
			if vals == nil || math.IsNaN(vals[r]) {
				continue
			}
			a.sum[i] += vals[r]
			a.cnt[i]++
		}
	}

	for gi, a := range accs {
		row := &out.Rows[gi]
		row.Size = a.size
		row.Values = make([]float64, len(aggs))
		for i, ag := range out.Aggs {
			switch ag.Op {
			case OpCount:
				row.Values[i] = float64(a.size)
			case OpMean:
				if a.cnt[i] == 0 {
					row.Values[i] = math.NaN()
				} else {
					row.Values[i] = round1(a.sum[i] / float64(a.cnt[i]))
				}
			}
		}
	}
	return out, nil
}

// round1 rounds to one decimal place, ties to even (22.25 -> 22.2).
func round1(x float64) float64 {
	return math.RoundToEven(x*10) / 10
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
