package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/healthlens-cli/internal/dataset"
	"github.com/KaramelBytes/healthlens-cli/internal/report"
)

const sampleCSV = `ID,Age,Gender,Height,Weight,BMI,Label
1,25,Male,175,80,25.3,Normal Weight
2,30,Female,160,60,22.5,Normal Weight
3,35,Male,180,90,27.3,Overweight
4,40,Female,150,50,20,Underweight
5,45,Male,190,100,31.2,Obese
6,52,Female,158,78,31.2,Obese
7,61,Male,170,72,24.9,Normal Weight
8,18,Female,162,45,17.1,Underweight
`

// isolate points HOME at a temp dir and writes the sample dataset there.
func isolate(t *testing.T) (home, data string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	data = filepath.Join(home, "obesity.csv")
	if err := os.WriteFile(data, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return home, data
}

// execute runs the root command with args and captures stdout.
func execute(args ...string) (string, error) {
	// Reset bound variables; cobra keeps flag values between Execute calls.
	cfgFile, debug, flagSource, flagLogFile = "", false, "", ""
	anaMetric, anaBins, anaOutputPath = "", 0, ""
	repMetric, repBins, repOutDir, repFormat, repTitle, repBackground = "", 0, "", "", "", ""
	sumMetric, sumBins, sumFigures = "", 0, nil
	cfgShowRaw = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func TestCLI_AnalyzeWritesMarkdown(t *testing.T) {
	home, data := isolate(t)
	outPath := filepath.Join(home, "summary.md")

	out := runCmd(t, "analyze", data, "--metric", "weight", "-o", outPath)
	if !strings.Contains(out, "Wrote analysis to") {
		t.Fatalf("unexpected output: %q", out)
	}
	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	md := string(b)
	for _, want := range []string{"[DATASET SUMMARY]", "Weight_mean", "Obese"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestCLI_AnalyzeRejectsUnknownMetric(t *testing.T) {
	_, data := isolate(t)
	if _, err := execute("analyze", data, "--metric", "Age"); err == nil {
		t.Fatalf("expected error for non-selectable metric")
	}
}

func TestCLI_ReportExport(t *testing.T) {
	home, data := isolate(t)
	dir := filepath.Join(home, "out")

	out := runCmd(t, "report", data, "--out", dir, "--title", "Clinic Report")
	if !strings.Contains(out, "manifest") {
		t.Fatalf("unexpected output: %q", out)
	}
	m, err := report.LoadManifest(dir)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if m.Records != 8 || m.ID == "" {
		t.Fatalf("unexpected manifest: %+v", m)
	}
	page, err := os.ReadFile(filepath.Join(dir, "report.html"))
	if err != nil {
		t.Fatalf("read report.html: %v", err)
	}
	if !strings.Contains(string(page), "Clinic Report") {
		t.Fatalf("report.html missing title")
	}
}

func TestCLI_SummarySelectedFigure(t *testing.T) {
	_, data := isolate(t)
	out := runCmd(t, "summary", data, "--figure", "mean-bmi-by-label")
	if !strings.Contains(out, "BMI_mean") {
		t.Fatalf("summary missing BMI_mean:\n%s", out)
	}
	if _, err := execute("summary", data, "--figure", "no-such-figure"); err == nil {
		t.Fatalf("expected error for unknown figure")
	}
}

func TestCLI_SourceFromConfig(t *testing.T) {
	_, data := isolate(t)
	runCmd(t, "config", "set", "source_path", data)
	out := runCmd(t, "analyze")
	if !strings.Contains(out, "[DATASET SUMMARY]") {
		t.Fatalf("analyze without file did not use source_path:\n%s", out)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home, _ := isolate(t)
	runCmd(t, "config", "set", "default_metric", "weight")
	runCmd(t, "config", "set", "histogram_bins", "12")

	if _, err := os.Stat(filepath.Join(home, ".healthlens", "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "default_metric: Weight") || !strings.Contains(out, "histogram_bins: 12") {
		t.Fatalf("config show missing values:\n%s", out)
	}

	if _, err := execute("config", "set", "histogram_bins", "1"); err == nil {
		t.Fatalf("expected validation error for bins=1")
	}
}

func TestCLI_MissingColumnIsSchemaMismatch(t *testing.T) {
	home, _ := isolate(t)
	bad := filepath.Join(home, "bad.csv")
	if err := os.WriteFile(bad, []byte("Age,Gender,Height,Weight,Label\n25,Male,175,80,Normal Weight\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := execute("analyze", bad)
	if !errors.Is(err, dataset.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestCLI_MissingSourceUnavailable(t *testing.T) {
	home, _ := isolate(t)
	_, err := execute("analyze", filepath.Join(home, "nope.csv"))
	if !errors.Is(err, dataset.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}
