package cmd

import (
	"github.com/KaramelBytes/healthlens-cli/internal/report"
	"github.com/spf13/cobra"
)

var (
	sumMetric  string
	sumBins    int
	sumFigures []string
)

var summaryCmd = &cobra.Command{
	Use:   "summary [file]",
	Short: "Print pipeline figures as terminal tables",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := runParams(sumMetric, sumBins)
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
		return report.WriteTables(cmd.OutOrStdout(), res, sumFigures...)
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVarP(&sumMetric, "metric", "m", "", "metric averaged per obesity class: Weight | BMI")
	summaryCmd.Flags().IntVar(&sumBins, "bins", 0, "histogram bins, 2-50")
	summaryCmd.Flags().StringSliceVarP(&sumFigures, "figure", "f", nil, "figure IDs to print (repeatable; default all)")
}
