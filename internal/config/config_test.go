package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DefaultMetric != "BMI" || c.HistogramBins != 10 || c.ChartFormat != "svg" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.ListenAddr == "" || c.SourcePath == "" {
		t.Fatalf("missing defaults: %+v", c)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HEALTHLENS_DEFAULT_METRIC", "Weight")
	t.Setenv("HEALTHLENS_HISTOGRAM_BINS", "20")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DefaultMetric != "Weight" || c.HistogramBins != 20 {
		t.Fatalf("env not applied: %+v", c)
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Set("source_path", "/data/obesity.csv"); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("chart_format", "PNG"); err != nil {
		t.Fatal(err)
	}
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.SourcePath != "/data/obesity.csv" || got.ChartFormat != "png" {
		t.Fatalf("reloaded config = %+v", got)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".healthlens")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("histogram_bins: [10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for malformed config.yaml")
	}
	if _, err := Load(filepath.Join(home, "missing.yaml")); err != nil {
		t.Fatalf("missing explicit file should fall back to defaults: %v", err)
	}
}

func TestSetValidation(t *testing.T) {
	c := &Global{}
	bad := [][2]string{
		{"default_metric", "Height"},
		{"histogram_bins", "1"},
		{"histogram_bins", "abc"},
		{"chart_format", "gif"},
		{"delimiter", ";;"},
		{"decimal_separator", "_"},
		{"nope", "x"},
	}
	for _, kv := range bad {
		if err := c.Set(kv[0], kv[1]); err == nil {
			t.Fatalf("Set(%q, %q) should fail", kv[0], kv[1])
		}
	}
	if err := c.Set("default_metric", "weight"); err != nil || c.DefaultMetric != "Weight" {
		t.Fatalf("default_metric = %q, %v", c.DefaultMetric, err)
	}
	for _, k := range Keys {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("Get(%q) not supported", k)
		}
	}
}

func TestDatasetOptions(t *testing.T) {
	c := &Global{Delimiter: `\t`, DecimalSeparator: ",", SheetName: "Data"}
	opt := c.DatasetOptions()
	if opt.Delimiter != '\t' || opt.DecimalSeparator != ',' || opt.SheetName != "Data" || opt.SheetIndex != 1 {
		t.Fatalf("options = %+v", opt)
	}
	if got := (&Global{Delimiter: ";"}).DatasetOptions().Delimiter; got != ';' {
		t.Fatalf("delimiter = %q", got)
	}
}
