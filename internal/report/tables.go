package report

import (
	"fmt"
	"io"

	"github.com/KaramelBytes/healthlens-cli/internal/pipeline"
	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// WriteTables prints figures as terminal tables. With no ids, every figure is printed.
func WriteTables(w io.Writer, res *pipeline.Result, ids ...string) error {
	figs := res.Figures
	if len(ids) > 0 {
		figs = nil
		for _, id := range ids {
			f, ok := res.Figure(id)
			if !ok {
				return fmt.Errorf("unknown figure %q", id)
			}
			figs = append(figs, *f)
		}
	}
	for i := range figs {
		fig := &figs[i]
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, headingStyle.Render(fig.Title))
		if fig.Failed() {
			fmt.Fprintln(w, warnStyle.Render("⚠ not available: "+fig.Error))
			continue
		}
		table := tablewriter.NewWriter(w)
		table.SetHeader(fig.Frame.Names())
		table.SetAutoFormatHeaders(false)
		for r := 0; r < fig.Frame.Rows(); r++ {
			row := make([]string, len(fig.Frame.Columns))
			for j := range fig.Frame.Columns {
				row[j] = formatCell(&fig.Frame.Columns[j], r)
			}
			table.Append(row)
		}
		table.Render()
	}
	return nil
}
