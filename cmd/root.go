package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/healthlens-cli/internal/config"
	"github.com/KaramelBytes/healthlens-cli/internal/logging"
	"github.com/KaramelBytes/healthlens-cli/internal/pipeline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	flagSource  string
	flagLogFile string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
	errMark  = color.New(color.FgRed).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "healthlens",
	Short: "healthlens: obesity dataset statistics and charts",
	Long: `healthlens loads a tabular health dataset (Age, Height, Weight, BMI, Gender, Label),
derives age groups, and renders descriptive statistics, grouped summaries, and charts
as Markdown, terminal tables, an HTML report, a local web page, or an interactive explorer.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logPath := flagLogFile
		if logPath == "" && cfg != nil {
			logPath = cfg.LogFile
		}
		return logging.Init(logPath, debug)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Close()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errMark("✗ Error:"), err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.healthlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log pipeline events to stderr")
	rootCmd.PersistentFlags().StringVar(&flagSource, "source", "", "dataset file (overrides source_path)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "append log events to this file (overrides log_file)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "%s failed to load config: %v\n", warnMark("⚠ Warning:"), err)
		c = &cfgpkg.Global{}
	}
	cfg = c
}

// sourcePath resolves the dataset path: positional argument, then --source, then config.
func sourcePath(args []string) (string, error) {
	switch {
	case len(args) > 0 && args[0] != "":
		return args[0], nil
	case flagSource != "":
		return flagSource, nil
	case cfg != nil && cfg.SourcePath != "":
		return cfg.SourcePath, nil
	}
	return "", fmt.Errorf("no dataset: pass a file, use --source, or set source_path")
}

func newSession(args []string) (*pipeline.Session, error) {
	path, err := sourcePath(args)
	if err != nil {
		return nil, err
	}
	return pipeline.NewSession(path, cfg.DatasetOptions()), nil
}

// runParams builds params from the metric and bins flags, defaulting to config.
func runParams(metric string, bins int) (pipeline.Params, error) {
	p := pipeline.Params{Metric: metric, Bins: bins}
	if p.Metric == "" {
		p.Metric = cfg.DefaultMetric
	}
	if p.Metric == "" {
		p.Metric = pipeline.DefaultParams().Metric
	}
	if p.Bins == 0 {
		p.Bins = cfg.HistogramBins
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
