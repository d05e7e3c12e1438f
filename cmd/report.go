package cmd

import (
	"fmt"

	"github.com/KaramelBytes/healthlens-cli/internal/report"
	"github.com/spf13/cobra"
)

var (
	repMetric     string
	repBins       int
	repOutDir     string
	repFormat     string
	repTitle      string
	repBackground string
)

var reportCmd = &cobra.Command{
	Use:   "report [file]",
	Short: "Export charts, tables, report.html and a manifest to a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := runParams(repMetric, repBins)
		if err != nil {
			return err
		}
		s, err := newSession(args)
		if err != nil {
			return err
		}
		res, err := s.Run(params)
		if err != nil {
			return err
		}
		opt := htmlOptions()
		if repFormat != "" {
			switch repFormat {
			case "svg", "png":
				opt.Chart.Format = repFormat
			default:
				return fmt.Errorf("unsupported --format: %s (use svg|png)", repFormat)
			}
		}
		if repTitle != "" {
			opt.Title = repTitle
		}
		if repBackground != "" {
			opt.BackgroundImage = repBackground
		}
		dir := repOutDir
		if dir == "" {
			dir = cfg.OutputDir
		}
		if dir == "" {
			dir = "healthlens-report"
		}
		m, err := report.Export(dir, res, opt)
		if err != nil {
			return err
		}
		failed := 0
		for _, f := range m.Files {
			if f.Error != "" {
				failed++
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %d files to %s (manifest %s)\n", okMark("✓"), len(m.Files)-failed, dir, m.ID)
		if failed > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d figure(s) not available, see report.html\n", warnMark("⚠"), failed)
		}
		return nil
	},
}

// htmlOptions maps config onto report options.
func htmlOptions() report.HTMLOptions {
	chart := report.DefaultChartOptions()
	if cfg.ChartWidth > 0 {
		chart.Width = cfg.ChartWidth
	}
	if cfg.ChartHeight > 0 {
		chart.Height = cfg.ChartHeight
	}
	if cfg.ChartFormat != "" {
		chart.Format = cfg.ChartFormat
	}
	return report.HTMLOptions{
		Title:           cfg.ReportTitle,
		Chart:           chart,
		BackgroundImage: cfg.BackgroundImage,
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&repMetric, "metric", "m", "", "metric averaged per obesity class: Weight | BMI")
	reportCmd.Flags().IntVar(&repBins, "bins", 0, "histogram bins, 2-50")
	reportCmd.Flags().StringVarP(&repOutDir, "out", "o", "", "output directory (default from output_dir)")
	reportCmd.Flags().StringVar(&repFormat, "format", "", "chart image format: svg | png")
	reportCmd.Flags().StringVar(&repTitle, "title", "", "report title")
	reportCmd.Flags().StringVar(&repBackground, "background", "", "image file embedded as the page background")
}
