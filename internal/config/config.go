package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/healthlens-cli/internal/dataset"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Dataset source
	SourcePath       string `mapstructure:"source_path" yaml:"source_path"`
	Delimiter        string `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	SheetName        string `mapstructure:"sheet_name" yaml:"sheet_name"`

	// Pipeline defaults
	DefaultMetric string `mapstructure:"default_metric" yaml:"default_metric"`
	HistogramBins int    `mapstructure:"histogram_bins" yaml:"histogram_bins"`

	// Output
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir"`
	ChartFormat     string `mapstructure:"chart_format" yaml:"chart_format"`
	ChartWidth      int    `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight     int    `mapstructure:"chart_height" yaml:"chart_height"`
	ReportTitle     string `mapstructure:"report_title" yaml:"report_title"`
	BackgroundImage string `mapstructure:"background_image" yaml:"background_image"`

	// Server and logging
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"source_path", "delimiter", "decimal_separator", "sheet_name",
	"default_metric", "histogram_bins",
	"output_dir", "chart_format", "chart_width", "chart_height", "report_title", "background_image",
	"listen_addr", "log_file",
}

// Dir returns the configuration directory, ~/.healthlens.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".healthlens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.healthlens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("HEALTHLENS")
	v.AutomaticEnv()

	v.SetDefault("source_path", "Obesity Classification.csv")
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("sheet_name", "")
	v.SetDefault("default_metric", "BMI")
	v.SetDefault("histogram_bins", 10)
	v.SetDefault("output_dir", "healthlens-report")
	v.SetDefault("chart_format", "svg")
	v.SetDefault("chart_width", 800)
	v.SetDefault("chart_height", 420)
	v.SetDefault("report_title", "Obesity Classification Report")
	v.SetDefault("background_image", "")
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("log_file", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// The file is optional; a present but unreadable one is an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Set validates and assigns one key.
func (c *Global) Set(key, val string) error {
	switch key {
	case "source_path":
		c.SourcePath = val
	case "delimiter":
		if val != "" && val != `\t` && utf8.RuneCountInString(val) != 1 {
			return fmt.Errorf("invalid delimiter: %q (use a single character or \\t)", val)
		}
		c.Delimiter = val
	case "decimal_separator":
		if val != "" && val != "." && val != "," {
			return fmt.Errorf("invalid decimal_separator: %q (use . or ,)", val)
		}
		c.DecimalSeparator = val
	case "sheet_name":
		c.SheetName = val
	case "default_metric":
		switch strings.ToLower(val) {
		case "bmi":
			c.DefaultMetric = dataset.ColBMI
		case "weight":
			c.DefaultMetric = dataset.ColWeight
		default:
			return fmt.Errorf("invalid default_metric: %s (use Weight or BMI)", val)
		}
	case "histogram_bins":
		i, err := strconv.Atoi(val)
		if err != nil || i < 2 || i > 50 {
			return fmt.Errorf("invalid int for histogram_bins: %v (use 2-50)", val)
		}
		c.HistogramBins = i
	case "output_dir":
		c.OutputDir = val
	case "chart_format":
		switch strings.ToLower(val) {
		case "svg", "png":
			c.ChartFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid chart_format: %s (use svg or png)", val)
		}
	case "chart_width", "chart_height":
		i, err := strconv.Atoi(val)
		if err != nil || i < 100 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		if key == "chart_width" {
			c.ChartWidth = i
		} else {
			c.ChartHeight = i
		}
	case "report_title":
		c.ReportTitle = val
	case "background_image":
		c.BackgroundImage = val
	case "listen_addr":
		c.ListenAddr = val
	case "log_file":
		c.LogFile = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// Get returns the display value of key.
func (c *Global) Get(key string) (string, bool) {
	switch key {
	case "source_path":
		return c.SourcePath, true
	case "delimiter":
		return c.Delimiter, true
	case "decimal_separator":
		return c.DecimalSeparator, true
	case "sheet_name":
		return c.SheetName, true
	case "default_metric":
		return c.DefaultMetric, true
	case "histogram_bins":
		return strconv.Itoa(c.HistogramBins), true
	case "output_dir":
		return c.OutputDir, true
	case "chart_format":
		return c.ChartFormat, true
	case "chart_width":
		return strconv.Itoa(c.ChartWidth), true
	case "chart_height":
		return strconv.Itoa(c.ChartHeight), true
	case "report_title":
		return c.ReportTitle, true
	case "background_image":
		return c.BackgroundImage, true
	case "listen_addr":
		return c.ListenAddr, true
	case "log_file":
		return c.LogFile, true
	}
	return "", false
}

// DatasetOptions converts the source settings into loader options.
func (c *Global) DatasetOptions() dataset.Options {
	opt := dataset.DefaultOptions()
	switch c.Delimiter {
	case "":
	case `\t`, "tab":
		opt.Delimiter = '\t'
	default:
		r, _ := utf8.DecodeRuneInString(c.Delimiter)
		opt.Delimiter = r
	}
	if c.DecimalSeparator != "" {
		r, _ := utf8.DecodeRuneInString(c.DecimalSeparator)
		opt.DecimalSeparator = r
	}
	opt.SheetName = c.SheetName
	return opt
}
