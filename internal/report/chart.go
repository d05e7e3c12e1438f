package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/healthlens-cli/internal/dataset"
	"github.com/KaramelBytes/healthlens-cli/internal/pipeline"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNotChartable indicates a figure is rendered as a table rather than an image.
var ErrNotChartable = errors.New("figure is not chartable")

// ChartOptions sizes and encodes rendered charts.
type ChartOptions struct {
	Width  int
	Height int
	// Format is "svg" or "png".
	Format string
}

// DefaultChartOptions returns an 800x420 SVG.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 800, Height: 420, Format: "svg"}
}

// Ext returns the file extension for the configured format.
func (o ChartOptions) Ext() string {
	if strings.EqualFold(o.Format, "png") {
		return "png"
	}
	return "svg"
}

func (o ChartOptions) provider() chart.RendererProvider {
	if o.Ext() == "png" {
		return chart.PNG
	}
	return chart.SVG
}

func (o ChartOptions) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 800
	}
	if h <= 0 {
		h = 420
	}
	return w, h
}

var (
	palette = []drawing.Color{
		drawing.ColorFromHex("3B82F6"),
		drawing.ColorFromHex("EC4899"),
		drawing.ColorFromHex("10B981"),
		drawing.ColorFromHex("F59E0B"),
		drawing.ColorFromHex("8B5CF6"),
		drawing.ColorFromHex("6B7280"),
	}
	genderColors = map[string]drawing.Color{
		"Male":   drawing.ColorFromHex("3B82F6"),
		"Female": drawing.ColorFromHex("EC4899"),
	}
)

func colorFor(group string, i int) drawing.Color {
	if c, ok := genderColors[group]; ok {
		return c
	}
	return palette[i%len(palette)]
}

// Chartable reports whether fig can be rendered by RenderChart.
func Chartable(fig *pipeline.Figure) bool {
	switch fig.Kind {
	case pipeline.KindHistogram, pipeline.KindBar, pipeline.KindGroupedBar, pipeline.KindLineByGroup, pipeline.KindBox:
		return !fig.Failed() && fig.Frame.Rows() > 0
	}
	return false
}

// RenderChart draws fig to w. Tables and heatmaps return ErrNotChartable.
func RenderChart(w io.Writer, fig *pipeline.Figure, opt ChartOptions) error {
	if fig.Failed() {
		return fmt.Errorf("%w: %s: %v", ErrNotChartable, fig.ID, fig.Err)
	}
	if fig.Frame.Rows() == 0 {
		return fmt.Errorf("%w: %s has no rows", ErrNotChartable, fig.ID)
	}
	switch fig.Kind {
	case pipeline.KindHistogram, pipeline.KindBar:
		return renderBars(w, fig, opt)
	case pipeline.KindGroupedBar:
		return renderGroupedBars(w, fig, opt)
	case pipeline.KindLineByGroup:
		return renderLines(w, fig, opt)
	case pipeline.KindBox:
		return renderBox(w, fig, opt)
	}
	return fmt.Errorf("%w: %s is a %s", ErrNotChartable, fig.ID, fig.Kind)
}

func columns(fig *pipeline.Figure, names ...string) ([]*pipeline.Column, error) {
	out := make([]*pipeline.Column, len(names))
	for i, n := range names {
		c, ok := fig.Frame.Col(n)
		if !ok {
			return nil, fmt.Errorf("render %s: missing column %q", fig.ID, n)
		}
		out[i] = c
	}
	return out, nil
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// valueRange pads [lo, hi] and guards against a zero-width range.
func valueRange(lo, hi float64, fromZero bool) *chart.ContinuousRange {
	if fromZero && lo > 0 {
		lo = 0
	}
	if hi <= lo {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.08
	if fromZero && lo == 0 {
		return &chart.ContinuousRange{Min: 0, Max: hi + pad}
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func renderBars(w io.Writer, fig *pipeline.Figure, opt ChartOptions) error {
	cols, err := columns(fig, fig.X, fig.Y)
	if err != nil {
		return err
	}
	labels, vals := cols[0], cols[1]
	color := palette[0]
	if fig.Kind == pipeline.KindBar {
		color = palette[2]
	}
	bars := make([]chart.Value, labels.Len())
	hi := 0.0
	for i := range bars {
		v := finite(vals.Floats[i])
		hi = math.Max(hi, v)
		bars[i] = chart.Value{
			Label: labels.Format(i),
			Value: v,
			Style: chart.Style{FillColor: color, StrokeColor: color, StrokeWidth: 1},
		}
	}
	return drawBars(w, fig.Title, bars, hi, opt)
}

func renderGroupedBars(w io.Writer, fig *pipeline.Figure, opt ChartOptions) error {
	cols, err := columns(fig, fig.X, fig.Group, fig.Y)
	if err != nil {
		return err
	}
	cats, groups, vals := cols[0], cols[1], cols[2]

	// Bars are laid out per category, then per group in first-appearance order.
	var catOrder, groupOrder []string
	seenCat, seenGroup := map[string]bool{}, map[string]int{}
	for i := 0; i < cats.Len(); i++ {
		if c := cats.Format(i); !seenCat[c] {
			seenCat[c] = true
			catOrder = append(catOrder, c)
		}
		if g := groups.Format(i); seenGroup[g] == 0 {
			groupOrder = append(groupOrder, g)
			seenGroup[g] = len(groupOrder)
		}
	}
	var bars []chart.Value
	hi := 0.0
	for _, c := range catOrder {
		for i := 0; i < cats.Len(); i++ {
			if cats.Format(i) != c {
				continue
			}
			g := groups.Format(i)
			color := colorFor(g, seenGroup[g]-1)
			v := finite(vals.Floats[i])
			hi = math.Max(hi, v)
			bars = append(bars, chart.Value{
				Label: c + " / " + g,
				Value: v,
				Style: chart.Style{FillColor: color, StrokeColor: color, StrokeWidth: 1},
			})
		}
	}
	return drawBars(w, fig.Title, bars, hi, opt)
}

func drawBars(w io.Writer, title string, bars []chart.Value, hi float64, opt ChartOptions) error {
	width, height := opt.size()
	// Bars plus half-width gaps fill the canvas minus the axis gutter.
	barWidth := int(float64(width-120) / (float64(len(bars)) * 1.5))
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < 4 {
		barWidth = 4
	}
	graph := chart.BarChart{
		Title:      title,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: barWidth / 2,
		YAxis:      chart.YAxis{Range: valueRange(0, hi, true)},
		Bars:       bars,
	}
	if err := graph.Render(opt.provider(), w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

func renderLines(w io.Writer, fig *pipeline.Figure, opt ChartOptions) error {
	cols, err := columns(fig, fig.X, fig.Group, fig.Y)
	if err != nil {
		return err
	}
	xs, groups, ys := cols[0], cols[1], cols[2]

	// X positions come from the age group lower bound when the axis is an age group,
	// otherwise from first-appearance order.
	pos := map[string]float64{}
	var ticks []chart.Tick
	for i := 0; i < xs.Len(); i++ {
		label := xs.Format(i)
		if _, ok := pos[label]; ok {
			continue
		}
		x := float64(len(pos))
		if g, ok := dataset.ParseAgeGroup(label); ok && fig.X == dataset.ColAgeGroup {
			x = float64(g.Lower)
		}
		pos[label] = x
		ticks = append(ticks, chart.Tick{Value: x, Label: label})
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Value < ticks[j].Value })

	type line struct {
		xs, ys []float64
	}
	lines := map[string]*line{}
	var order []string
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < xs.Len(); i++ {
		y := ys.Floats[i]
		if math.IsNaN(y) {
			continue
		}
		g := groups.Format(i)
		l, ok := lines[g]
		if !ok {
			l = &line{}
			lines[g] = l
			order = append(order, g)
		}
		l.xs = append(l.xs, pos[xs.Format(i)])
		l.ys = append(l.ys, y)
		lo, hi = math.Min(lo, y), math.Max(hi, y)
	}
	if len(order) == 0 {
		return fmt.Errorf("%w: %s has no finite values", ErrNotChartable, fig.ID)
	}
	series := make([]chart.Series, 0, len(order))
	for i, g := range order {
		l := lines[g]
		sortXY(l.xs, l.ys)
		color := colorFor(g, i)
		series = append(series, chart.ContinuousSeries{
			Name:    g,
			XValues: l.xs,
			YValues: l.ys,
			Style:   chart.Style{StrokeColor: color, StrokeWidth: 2, DotColor: color, DotWidth: 4},
		})
	}

	width, height := opt.size()
	xlo, xhi := ticks[0].Value, ticks[len(ticks)-1].Value
	span := math.Max((xhi-xlo)*0.05, 1)
	graph := chart.Chart{
		Title:      fig.Title,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      width,
		Height:     height,
		XAxis:      chart.XAxis{Name: fig.X, Ticks: ticks, Range: &chart.ContinuousRange{Min: xlo - span, Max: xhi + span}},
		YAxis:      chart.YAxis{Name: fig.Y, Range: valueRange(lo, hi, false)},
		Series:     series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	if err := graph.Render(opt.provider(), w); err != nil {
		return fmt.Errorf("render line chart: %w", err)
	}
	return nil
}

func renderBox(w io.Writer, fig *pipeline.Figure, opt ChartOptions) error {
	cols, err := columns(fig, fig.X, "LowerWhisker", "Q1", "Median", "Q3", "UpperWhisker")
	if err != nil {
		return err
	}
	groups, lw, q1, med, q3, uw := cols[0], cols[1], cols[2], cols[3], cols[4], cols[5]

	var series []chart.Series
	var ticks []chart.Tick
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < groups.Len(); i++ {
		x := float64(i + 1)
		color := palette[i%len(palette)]
		stroke := chart.Style{StrokeColor: color, StrokeWidth: 2}
		ticks = append(ticks, chart.Tick{Value: x, Label: groups.Format(i)})
		lo, hi = math.Min(lo, lw.Floats[i]), math.Max(hi, uw.Floats[i])
		series = append(series,
			chart.ContinuousSeries{
				Style:   stroke,
				XValues: []float64{x - 0.3, x + 0.3, x + 0.3, x - 0.3, x - 0.3},
				YValues: []float64{q1.Floats[i], q1.Floats[i], q3.Floats[i], q3.Floats[i], q1.Floats[i]},
			},
			chart.ContinuousSeries{Style: stroke, XValues: []float64{x - 0.3, x + 0.3}, YValues: []float64{med.Floats[i], med.Floats[i]}},
			chart.ContinuousSeries{Style: stroke, XValues: []float64{x, x}, YValues: []float64{q3.Floats[i], uw.Floats[i]}},
			chart.ContinuousSeries{Style: stroke, XValues: []float64{x, x}, YValues: []float64{lw.Floats[i], q1.Floats[i]}},
			chart.ContinuousSeries{Style: stroke, XValues: []float64{x - 0.15, x + 0.15}, YValues: []float64{uw.Floats[i], uw.Floats[i]}},
			chart.ContinuousSeries{Style: stroke, XValues: []float64{x - 0.15, x + 0.15}, YValues: []float64{lw.Floats[i], lw.Floats[i]}},
		)
	}

	width, height := opt.size()
	graph := chart.Chart{
		Title:      fig.Title,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      width,
		Height:     height,
		XAxis:      chart.XAxis{Name: fig.X, Ticks: ticks, Range: &chart.ContinuousRange{Min: 0.4, Max: float64(groups.Len()) + 0.6}},
		YAxis:      chart.YAxis{Name: fig.Y, Range: valueRange(lo, hi, false)},
		Series:     series,
	}
	if err := graph.Render(opt.provider(), w); err != nil {
		return fmt.Errorf("render box plot: %w", err)
	}
	return nil
}

func sortXY(xs, ys []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
			ys[j], ys[j-1] = ys[j-1], ys[j]
		}
	}
}
