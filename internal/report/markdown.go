package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/healthlens-cli/internal/pipeline"
)

// Markdown renders a plain-text report of res: dataset summary, schema, each figure
// as a pipe table, and the strongest correlations.
func Markdown(res *pipeline.Result) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	b.WriteString(fmt.Sprintf("File: %s\n", res.Source))
	b.WriteString(fmt.Sprintf("Records: %d\n", res.Records))
	b.WriteString(fmt.Sprintf("Metric: %s (histogram bins %d)\n", res.Params.Metric, res.Params.Bins))
	if len(res.Dropped) > 0 {
		b.WriteString(fmt.Sprintf("Dropped columns: %s\n", strings.Join(res.Dropped, ", ")))
	}

	b.WriteString("\n[SCHEMA]\n")
	for _, c := range res.Summary {
		name := c.Name
		if c.Unit != "" {
			name = fmt.Sprintf("%s (%s)", c.Name, c.Unit)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (%d values)", name, c.Kind, c.Count))
		if c.Kind == "numeric" {
			if c.Count > 0 {
				b.WriteString(fmt.Sprintf(", min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			}
			if c.OutliersCount > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d (max |z|≈%.2f)", c.OutliersCount, c.OutliersMaxAbsZ))
			}
		} else if len(c.TopValues) > 0 {
			b.WriteString(", top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
			}
			b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
		}
		b.WriteString("\n")
	}

	for i := range res.Figures {
		fig := &res.Figures[i]
		if fig.ID == pipeline.FigDescribe {
			continue
		}
		b.WriteString(fmt.Sprintf("\n[%s]\n", strings.ToUpper(fig.Title)))
		if fig.Failed() {
			b.WriteString(fmt.Sprintf("(not available: %s)\n", fig.Error))
			continue
		}
		writePipeTable(&b, fig.Frame)
	}

	if len(res.TopPairs) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range res.TopPairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	return b.String()
}

func writePipeTable(b *strings.Builder, f *pipeline.Frame) {
	names := f.Names()
	for i := range names {
		names[i] = safeVal(names[i])
	}
	b.WriteString("| " + strings.Join(names, " | ") + " |\n")
	sep := make([]string, len(names))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for r := 0; r < f.Rows(); r++ {
		row := f.Row(r)
		for i := range row {
			row[i] = safeVal(row[i])
		}
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// formatCell renders a numeric cell compactly for HTML and terminal tables.
func formatCell(c *pipeline.Column, i int) string {
	if !c.Numeric() {
		return c.Strings[i]
	}
	v := c.Floats[i]
	if math.IsNaN(v) {
		return "n/a"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e9 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
