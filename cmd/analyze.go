package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/healthlens-cli/internal/report"
	"github.com/spf13/cobra"
)

var (
	anaMetric     string
	anaBins       int
	anaOutputPath string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Run the pipeline and print a Markdown summary",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := runParams(anaMetric, anaBins)
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
		md := report.Markdown(res)
		if anaOutputPath != "" {
			if err := os.WriteFile(anaOutputPath, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote analysis to %s\n", okMark("✓"), anaOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaMetric, "metric", "m", "", "metric averaged per obesity class: Weight | BMI (default from config)")
	analyzeCmd.Flags().IntVar(&anaBins, "bins", 0, "histogram bins, 2-50 (default from config)")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the summary (Markdown)")
}
