package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/healthlens-cli/internal/analysis"
	"github.com/KaramelBytes/healthlens-cli/internal/dataset"
	"github.com/KaramelBytes/healthlens-cli/internal/logging"
)

// Figure IDs produced by Run, in order. The box and mean IDs carry the metric.
const (
	FigDescribe     = "describe"
	FigHistAge      = "hist-age"
	FigHistBMI      = "hist-bmi"
	FigCountByLabel = "count-label-gender"
	FigProfileLine  = "profile-bmi-by-age"
	FigProfileTable = "profile-table"
	FigCorrelation  = "corr-heatmap"
)

// BoxID returns the box plot figure ID for metric.
func BoxID(metric string) string { return "box-" + strings.ToLower(metric) + "-by-label" }

// MeanID returns the category mean figure ID for metric.
func MeanID(metric string) string { return "mean-" + strings.ToLower(metric) + "-by-label" }

// Result is the fully materialized output of one pipeline run.
type Result struct {
	Params   Params                   `json:"params"`
	Source   string                   `json:"source"`
	Records  int                      `json:"records"`
	Units    map[string]string        `json:"units,omitempty"`
	Dropped  []string                 `json:"dropped,omitempty"`
	Figures  []Figure                 `json:"figures"`
	Summary  []analysis.ColumnSummary `json:"-"`
	TopPairs []analysis.PairCorr      `json:"-"`
}

// Figure looks up a figure by ID.
func (r *Result) Figure(id string) (*Figure, bool) {
	for i := range r.Figures {
		if r.Figures[i].ID == id {
			return &r.Figures[i], true
		}
	}
	return nil, false
}

// Run computes every figure for t under params. Invalid params and invalid column
// references abort the run; insufficient data only marks the affected figure.
func Run(t *dataset.Table, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: no table", dataset.ErrSourceUnavailable)
	}
	res := &Result{Params: params, Source: t.Source, Records: t.Len(), Units: t.Units, Dropped: t.Dropped}

	res.Summary = analysis.Describe(t)
	res.Figures = append(res.Figures, Figure{
		ID: FigDescribe, Kind: KindTable, Title: "Dataset summary", Frame: describeFrame(res.Summary),
	})

	steps := []func() (Figure, error){
		func() (Figure, error) { return histogramFigure(t, FigHistAge, dataset.ColAge, params.Bins) },
		func() (Figure, error) { return histogramFigure(t, FigHistBMI, dataset.ColBMI, params.Bins) },
		func() (Figure, error) { return boxFigure(t, params.Metric) },
		func() (Figure, error) { return categoryMeanFigure(t, params.Metric) },
		func() (Figure, error) { return categoryGenderFigure(t) },
	}
	for _, step := range steps {
		fig, err := step()
		if err != nil {
			return nil, err
		}
		res.Figures = append(res.Figures, fig)
	}

	line, table, err := profileFigures(t)
	if err != nil {
		return nil, err
	}
	res.Figures = append(res.Figures, line, table)

	heat, pairs, err := correlationFigure(t)
	if err != nil {
		return nil, err
	}
	res.TopPairs = pairs
	res.Figures = append(res.Figures, heat)

	failed := 0
	for _, f := range res.Figures {
		if f.Failed() {
			failed++
		}
	}
	logging.LogEvent("pipeline: source=%s records=%d metric=%s bins=%d figures=%d failed=%d",
		res.Source, res.Records, params.Metric, params.Bins, len(res.Figures), failed)
	return res, nil
}

// localize turns ErrInsufficientData into a failed figure and passes other errors through.
func localize(id string, kind Kind, title string, err error) (Figure, error) {
	if errors.Is(err, analysis.ErrInsufficientData) {
		return failedFigure(id, kind, title, err), nil
	}
	return Figure{}, fmt.Errorf("%s: %w", id, err)
}

func describeFrame(sums []analysis.ColumnSummary) *Frame {
	n := len(sums)
	names, kinds, units, tops := make([]string, n), make([]string, n), make([]string, n), make([]string, n)
	count, mean, std, lo, q1, med, q3, hi, outl, uniq := make([]float64, n), make([]float64, n), make([]float64, n),
		make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n),
		make([]float64, n), make([]float64, n)
	for i, s := range sums {
		names[i], kinds[i], units[i] = s.Name, s.Kind, s.Unit
		count[i] = float64(s.Count)
		if s.Kind == "numeric" {
			mean[i], std[i] = round2(s.Mean), round2(s.Std)
			lo[i], q1[i], med[i], q3[i], hi[i] = round2(s.Min), round2(s.Q1), round2(s.Median), round2(s.Q3), round2(s.Max)
			outl[i] = float64(s.OutliersCount)
			uniq[i] = math.NaN()
			continue
		}
		mean[i], std[i], lo[i], q1[i], med[i], q3[i], hi[i], outl[i] = math.NaN(), math.NaN(), math.NaN(), math.NaN(),
			math.NaN(), math.NaN(), math.NaN(), math.NaN()
		uniq[i] = float64(s.Unique)
		var parts []string
		for _, tv := range s.TopValues {
			parts = append(parts, fmt.Sprintf("%s(%d)", tv.Value, tv.Count))
		}
		tops[i] = strings.Join(parts, ", ")
	}
	f := &Frame{}
	f.AddStrings("Column", names).AddStrings("Kind", kinds).AddStrings("Unit", units).
		AddFloats("Count", count).AddFloats("Mean", mean).AddFloats("Std", std).
		AddFloats("Min", lo).AddFloats("Q1", q1).AddFloats("Median", med).AddFloats("Q3", q3).AddFloats("Max", hi).
		AddFloats("Outliers", outl).AddFloats("Unique", uniq).AddStrings("Top", tops)
	return f
}

func histogramFigure(t *dataset.Table, id, column string, bins int) (Figure, error) {
	title := "Distribution of " + column
	vals, _ := t.Numeric(column)
	hist, err := analysis.Histogram(vals, bins)
	if err != nil {
		return localize(id, KindHistogram, title, err)
	}
	labels := make([]string, len(hist))
	lower, upper, count := make([]float64, len(hist)), make([]float64, len(hist)), make([]float64, len(hist))
	for i, b := range hist {
		labels[i], lower[i], upper[i], count[i] = b.Label(), b.Lower, b.Upper, float64(b.Count)
	}
	f := &Frame{}
	f.AddStrings("Bin", labels).AddFloats("Lower", lower).AddFloats("Upper", upper).AddFloats("Count", count)
	return Figure{ID: id, Kind: KindHistogram, Title: title, Frame: f, X: "Bin", Y: "Count"}, nil
}

func boxFigure(t *dataset.Table, metric string) (Figure, error) {
	id, title := BoxID(metric), metric+" by obesity class"
	boxes, err := analysis.BoxByCategory(t, metric, dataset.ColLabel)
	if err != nil {
		return localize(id, KindBox, title, err)
	}
	n := len(boxes)
	groups := make([]string, n)
	cols := map[string][]float64{}
	names := []string{"N", "Min", "Q1", "Median", "Q3", "Max", "LowerWhisker", "UpperWhisker", "Outliers"}
	for _, name := range names {
		cols[name] = make([]float64, n)
	}
	for i, b := range boxes {
		groups[i] = b.Group
		cols["N"][i] = float64(b.N)
		cols["Min"][i], cols["Q1"][i], cols["Median"][i], cols["Q3"][i], cols["Max"][i] = b.Min, b.Q1, b.Median, b.Q3, b.Max
		cols["LowerWhisker"][i], cols["UpperWhisker"][i] = b.LowerWhisker, b.UpperWhisker
		cols["Outliers"][i] = float64(len(b.Outliers))
	}
	f := (&Frame{}).AddStrings(dataset.ColLabel, groups)
	for _, name := range names {
		f.AddFloats(name, cols[name])
	}
	return Figure{ID: id, Kind: KindBox, Title: title, Frame: f, X: dataset.ColLabel, Y: metric}, nil
}

func categoryMeanFigure(t *dataset.Table, metric string) (Figure, error) {
	id, title := MeanID(metric), "Average "+metric+" by obesity class"
	st, err := analysis.CategoryMean(t, metric)
	if err != nil {
		return localize(id, KindBar, title, err)
	}
	f := summaryFrame(st)
	return Figure{ID: id, Kind: KindBar, Title: title, Frame: f, X: dataset.ColLabel, Y: st.Aggs[0].Name()}, nil
}

func categoryGenderFigure(t *dataset.Table) (Figure, error) {
	title := "Obesity class by gender"
	st, err := analysis.CategoryGenderCounts(t)
	if err != nil {
		return localize(FigCountByLabel, KindGroupedBar, title, err)
	}
	return Figure{ID: FigCountByLabel, Kind: KindGroupedBar, Title: title, Frame: summaryFrame(st),
		X: dataset.ColLabel, Y: string(analysis.OpCount), Group: dataset.ColGender}, nil
}

// summaryFrame flattens a summary table: key columns, then one column per aggregate.
func summaryFrame(st *analysis.SummaryTable) *Frame {
	f := &Frame{}
	for k, name := range st.GroupKeys {
		vals := make([]string, len(st.Rows))
		for i, r := range st.Rows {
			vals[i] = r.Key[k]
		}
		f.AddStrings(name, vals)
	}
	for a, agg := range st.Aggs {
		vals := make([]float64, len(st.Rows))
		for i, r := range st.Rows {
			vals[i] = r.Values[a]
		}
		f.AddFloats(agg.Name(), vals)
	}
	return f
}

func profileFigures(t *dataset.Table) (Figure, Figure, error) {
	lineTitle, tableTitle := "Average BMI by age group and gender", "Gender and age group profile"
	p, err := analysis.GenderAgeProfile(t)
	if err != nil {
		line, lerr := localize(FigProfileLine, KindLineByGroup, lineTitle, err)
		if lerr != nil {
			return Figure{}, Figure{}, lerr
		}
		return line, failedFigure(FigProfileTable, KindTable, tableTitle, err), nil
	}

	// Tidy long form: one row per (age group, gender) present.
	var ages, genders []string
	var bmi []float64
	for _, side := range []struct {
		name string
		st   *analysis.SummaryTable
	}{{"Male", p.Male}, {"Female", p.Female}} {
		for _, r := range side.st.Rows {
			ages = append(ages, r.Key[0])
			genders = append(genders, side.name)
			bmi = append(bmi, r.Values[1])
		}
	}
	bmiCol := analysis.Aggregation{Column: dataset.ColBMI, Op: analysis.OpMean}.Name()
	lf := (&Frame{}).AddStrings(dataset.ColAgeGroup, ages).AddStrings(dataset.ColGender, genders).AddFloats(bmiCol, bmi)
	line := Figure{ID: FigProfileLine, Kind: KindLineByGroup, Title: lineTitle, Frame: lf,
		X: dataset.ColAgeGroup, Y: bmiCol, Group: dataset.ColGender}

	// Wide join on age group; a missing side stays NaN.
	n := len(p.Rows)
	labels := make([]string, n)
	tf := &Frame{}
	sideCols := func(pick func(analysis.ProfileRow) *analysis.SummaryRow) [][]float64 {
		out := make([][]float64, len(analysis.ProfileAggs))
		for a := range out {
			out[a] = make([]float64, n)
		}
		for i, pr := range p.Rows {
			r := pick(pr)
			for a := range out {
				if r == nil {
					out[a][i] = math.NaN()
				} else {
					out[a][i] = r.Values[a]
				}
			}
		}
		return out
	}
	for i, pr := range p.Rows {
		labels[i] = pr.AgeGroup
	}
	tf.AddStrings(dataset.ColAgeGroup, labels)
	male := sideCols(func(pr analysis.ProfileRow) *analysis.SummaryRow { return pr.Male })
	female := sideCols(func(pr analysis.ProfileRow) *analysis.SummaryRow { return pr.Female })
	for a, agg := range analysis.ProfileAggs {
		tf.AddFloats("Male "+agg.Name(), male[a])
	}
	for a, agg := range analysis.ProfileAggs {
		tf.AddFloats("Female "+agg.Name(), female[a])
	}
	table := Figure{ID: FigProfileTable, Kind: KindTable, Title: tableTitle, Frame: tf, X: dataset.ColAgeGroup}
	return line, table, nil
}

func correlationFigure(t *dataset.Table) (Figure, []analysis.PairCorr, error) {
	title := "Correlation between numeric attributes"
	m, err := analysis.CorrelationMatrix(t, nil)
	if err != nil {
		fig, ferr := localize(FigCorrelation, KindHeatmap, title, err)
		return fig, nil, ferr
	}
	f := (&Frame{}).AddStrings("Column", append([]string{}, m.Columns...))
	for j, name := range m.Columns {
		vals := make([]float64, len(m.Columns))
		for i := range m.Columns {
			vals[i] = round2(m.Values[i][j])
		}
		f.AddFloats(name, vals)
	}
	fig := Figure{ID: FigCorrelation, Kind: KindHeatmap, Title: title, Frame: f, X: "Column"}
	return fig, m.TopPairs(3), nil
}

func round2(x float64) float64 {
	if math.IsNaN(x) {
		return x
	}
	return math.Round(x*100) / 100
}
