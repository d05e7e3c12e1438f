package cmd

import (
	"github.com/KaramelBytes/healthlens-cli/internal/tui"
	"github.com/spf13/cobra"
)

var expMetric string

var exploreCmd = &cobra.Command{
	Use:   "explore [file]",
	Short: "Interactively switch the category mean metric in the terminal",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := runParams(expMetric, 0)
		if err != nil {
			return err
		}
		s, err := newSession(args)
		if err != nil {
			return err
		}
		if _, err := s.Table(); err != nil {
			return err
		}
		return tui.Run(s, params.Metric, params.Bins)
	},
}

func init() {
	rootCmd.AddCommand(exploreCmd)
	exploreCmd.Flags().StringVarP(&expMetric, "metric", "m", "", "initial metric: Weight | BMI")
}
