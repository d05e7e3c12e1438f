package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/healthlens-cli/internal/dataset"
)

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

type pairAcc struct {
	n     float64
	sumX  float64
	sumY  float64
	sumXX float64
	sumYY float64
	sumXY float64
}

func (pa *pairAcc) add(x, y float64) {
	pa.n++
	pa.sumX += x
	pa.sumY += y
	pa.sumXX += x * x
	pa.sumYY += y * y
	pa.sumXY += x * y
}

// r returns the Pearson coefficient, or 0 when either side has zero variance.
func (pa *pairAcc) r() float64 {
	if pa.n < 2 {
		return 0
	}
	denom := math.Sqrt((pa.n*pa.sumXX - pa.sumX*pa.sumX) * (pa.n*pa.sumYY - pa.sumY*pa.sumY))
	if denom == 0 {
		return 0
	}
	r := (pa.n*pa.sumXY - pa.sumX*pa.sumY) / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// CorrelationMatrix computes pairwise Pearson correlation over the given numeric columns.
// An empty column list selects every numeric column. Rows with NaN in either column of a
// pair are skipped for that pair.
func CorrelationMatrix(t *dataset.Table, columns []string) (*CorrMatrix, error) {
	if len(columns) == 0 {
		columns = dataset.NumericColumns
	}
	names := make([]string, len(columns))
	vals := make([][]float64, len(columns))
	for i, c := range columns {
		name, ok := dataset.ColumnName(c)
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidGroupKey, c)
		}
		v, ok := t.Numeric(name)
		if !ok {
			return nil, fmt.Errorf("%w: column %q is not numeric", ErrInvalidGroupKey, name)
		}
		names[i] = name
		vals[i] = v
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 numeric columns, have %d", ErrInsufficientData, len(names))
	}
	if t.Len() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 records, have %d", ErrInsufficientData, t.Len())
	}

	n := len(names)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
		mat[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			var pa pairAcc
			for r := 0; r < t.Len(); r++ {
				x, y := vals[a][r], vals[b][r]
				if math.IsNaN(x) || math.IsNaN(y) {
					continue
				}
				pa.add(x, y)
			}
			r := pa.r()
			mat[a][b] = r
			mat[b][a] = r
		}
	}
	return &CorrMatrix{Columns: names, Values: mat}, nil
}

// TopPairs lists the off-diagonal pairs ordered by |r| descending, limited to max (0 = all).
func (m *CorrMatrix) TopPairs(max int) []PairCorr {
	var pairs []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if max > 0 && len(pairs) > max {
		pairs = pairs[:max]
	}
	return pairs
}
