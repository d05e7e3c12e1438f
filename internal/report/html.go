package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"math"
	"net/url"

	"github.com/KaramelBytes/healthlens-cli/internal/pipeline"
)

// HTMLOptions controls the standalone HTML page.
type HTMLOptions struct {
	Title string
	Chart ChartOptions
	// BackgroundImage is an image file embedded as the page background.
	BackgroundImage string
	// MetricLinks adds ?metric= selector links for a served page.
	MetricLinks bool
}

type htmlPage struct {
	Title      string
	Source     string
	Records    int
	Metric     string
	Dropped    []string
	Background template.CSS
	Metrics    []metricLink
	Figures    []htmlFigure
}

type metricLink struct {
	Name     string
	Href     string
	Selected bool
}

type htmlFigure struct {
	ID    string
	Title string
	Error string
	SVG   template.HTML
	Table *htmlTable
}

type htmlTable struct {
	Header []string
	Rows   [][]htmlCell
}

type htmlCell struct {
	Text  string
	Style template.CSS
}

// HTML renders res as a standalone page with inline SVG charts.
func HTML(w io.Writer, res *pipeline.Result, opt HTMLOptions) error {
	page := htmlPage{
		Title:   opt.Title,
		Source:  res.Source,
		Records: res.Records,
		Metric:  res.Params.Metric,
		Dropped: res.Dropped,
	}
	if page.Title == "" {
		page.Title = "Obesity Classification Report"
	}
	if opt.BackgroundImage != "" {
		uri, err := BackgroundDataURI(opt.BackgroundImage)
		if err != nil {
			return err
		}
		page.Background = template.CSS(fmt.Sprintf("background-image: url('%s'); background-size: cover;", uri))
	}
	if opt.MetricLinks {
		for _, m := range pipeline.SelectableMetrics {
			q := url.Values{"metric": {m}}
			page.Metrics = append(page.Metrics, metricLink{Name: m, Href: "?" + q.Encode(), Selected: m == res.Params.Metric})
		}
	}

	svgOpt := opt.Chart
	svgOpt.Format = "svg"
	for i := range res.Figures {
		fig := &res.Figures[i]
		hf := htmlFigure{ID: fig.ID, Title: fig.Title}
		switch {
		case fig.Failed():
			hf.Error = fig.Error
		case Chartable(fig):
			var buf bytes.Buffer
			if err := RenderChart(&buf, fig, svgOpt); err != nil {
				hf.Error = err.Error()
			} else {
				hf.SVG = template.HTML(buf.String())
			}
		default:
			hf.Table = frameTable(fig)
		}
		page.Figures = append(page.Figures, hf)
	}

	if err := pageTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func frameTable(fig *pipeline.Figure) *htmlTable {
	t := &htmlTable{Header: fig.Frame.Names()}
	heat := fig.Kind == pipeline.KindHeatmap
	for r := 0; r < fig.Frame.Rows(); r++ {
		row := make([]htmlCell, len(fig.Frame.Columns))
		for j := range fig.Frame.Columns {
			c := &fig.Frame.Columns[j]
			row[j] = htmlCell{Text: formatCell(c, r)}
			if heat && c.Numeric() {
				row[j].Style = heatStyle(c.Floats[r])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// heatStyle maps r in [-1, 1] onto a blue-white-red scale.
func heatStyle(r float64) template.CSS {
	if math.IsNaN(r) {
		return ""
	}
	r = math.Max(-1, math.Min(1, r))
	a := math.Abs(r)
	shade := int(255 - a*175)
	var rgb string
	if r >= 0 {
		rgb = fmt.Sprintf("rgb(255,%d,%d)", shade, shade)
	} else {
		rgb = fmt.Sprintf("rgb(%d,%d,255)", shade, shade)
	}
	return template.CSS("background-color: " + rgb + ";")
}

var pageTemplate = template.Must(template.New("healthlens-report").Parse(pageTemplateHTML))

const pageTemplateHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 0; color: #1f2937; }
    main { max-width: 960px; margin: 0 auto; padding: 24px; background: rgba(255,255,255,0.92); }
    h1 { margin-bottom: 4px; }
    .meta { color: #6b7280; font-size: 0.9em; }
    .metrics a { margin-right: 12px; }
    .metrics a.selected { font-weight: bold; text-decoration: none; }
    figure { margin: 32px 0; }
    figcaption { font-weight: 600; margin-bottom: 8px; }
    table { border-collapse: collapse; font-size: 0.85em; }
    th, td { border: 1px solid #e5e7eb; padding: 4px 8px; text-align: right; }
    th:first-child, td:first-child { text-align: left; }
    .placeholder { padding: 16px; background: #fef3c7; border: 1px dashed #f59e0b; }
  </style>
</head>
<body{{if .Background}} style="{{.Background}}"{{end}}>
<main>
  <h1>{{.Title}}</h1>
  <p class="meta">Source: {{.Source}} &middot; {{.Records}} records{{if .Dropped}} &middot; dropped columns: {{range $i, $d := .Dropped}}{{if $i}}, {{end}}{{$d}}{{end}}{{end}}</p>
  <h3>Problem Statement</h3>
  <p>Obesity is a chronic complex disease defined by excessive fat deposits that can impair health.
  It raises the risk of type 2 diabetes, heart disease and certain cancers, and affects bone health,
  reproduction, sleep and mobility.</p>
  <p>The figures below describe how Age, BMI, Gender, Weight and Height relate to an individual's weight
  status: Underweight, Normal Weight, Overweight or Obese.</p>
  {{if .Metrics}}<p class="metrics">Metric:
    {{range .Metrics}}<a href="{{.Href}}"{{if .Selected}} class="selected"{{end}}>{{.Name}}</a>{{end}}
  </p>{{else}}<p class="meta">Metric: {{.Metric}}</p>{{end}}
  {{range .Figures}}
  <figure id="{{.ID}}">
    <figcaption>{{.Title}}</figcaption>
    {{if .Error}}<div class="placeholder">Not available: {{.Error}}</div>
    {{else if .SVG}}{{.SVG}}
    {{else if .Table}}<table>
      <thead><tr>{{range .Table.Header}}<th>{{.}}</th>{{end}}</tr></thead>
      <tbody>{{range .Table.Rows}}<tr>{{range .}}<td{{if .Style}} style="{{.Style}}"{{end}}>{{.Text}}</td>{{end}}</tr>{{end}}</tbody>
    </table>{{end}}
  </figure>
  {{end}}
</main>
</body>
</html>
`
