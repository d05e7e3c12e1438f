package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/healthlens-cli/internal/dataset"
	"github.com/KaramelBytes/healthlens-cli/internal/pipeline"
	"github.com/KaramelBytes/healthlens-cli/internal/report"
)

const sampleCSV = `Age,Gender,Height,Weight,BMI,Label
25,Male,175,80,26.1,Overweight
32,Female,160,55,21.5,Normal Weight
47,Male,180,110,34.0,Obese
22,Female,165,48,17.6,Underweight
38,Male,170,68,23.5,Normal Weight
55,Female,158,85,34.0,Obese
61,Male,172,90,30.4,Obese
29,Female,168,62,22.0,Normal Weight
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "obesity.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(pipeline.NewSession(path, dataset.DefaultOptions()), Options{
		DefaultMetric: "BMI",
		HTML:          report.HTMLOptions{Title: "Served", Chart: report.DefaultChartOptions()},
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(b)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Fatalf("healthz = %d %s", resp.StatusCode, body)
	}
}

func TestIndexPage(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/?metric=weight")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(body, "<title>Served</title>") || !strings.Contains(body, `id="mean-weight-by-label"`) {
		t.Fatalf("unexpected page")
	}
	if resp.Header.Get("Content-Type") != "text/html; charset=utf-8" {
		t.Fatalf("content type = %s", resp.Header.Get("Content-Type"))
	}
}

func TestCategoryMean(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/api/category-mean?metric=Weight")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Metric string `json:"metric"`
		Rows   []struct {
			Label string   `json:"label"`
			Mean  *float64 `json:"mean"`
		} `json:"rows"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Metric != "Weight" || len(out.Rows) != 4 {
		t.Fatalf("response = %+v", out)
	}
	for _, r := range out.Rows {
		if r.Label == "Obese" && (r.Mean == nil || *r.Mean != 95.0) {
			t.Fatalf("obese mean = %v", r.Mean)
		}
	}
}

func TestInvalidMetric(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/?metric=Height", "/api/category-mean?metric=Age", "/charts/hist-age.svg?metric=x"} {
		resp, body := get(t, ts.URL+path)
		if resp.StatusCode != http.StatusBadRequest || !strings.Contains(body, `"error"`) {
			t.Fatalf("%s = %d %s", path, resp.StatusCode, body)
		}
	}
}

func TestPipelineEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/pipeline", "application/json", strings.NewReader(`{"metric":"bmi","bins":5}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Params  pipeline.Params `json:"params"`
		Figures []struct {
			ID string `json:"id"`
		} `json:"figures"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Params.Metric != "BMI" || out.Params.Bins != 5 || len(out.Figures) != 9 {
		t.Fatalf("response = %+v", out)
	}

	bad, err := http.Post(ts.URL+"/api/pipeline", "application/json", strings.NewReader(`{"metric":"Height"}`))
	if err != nil {
		t.Fatal(err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid params status = %d", bad.StatusCode)
	}
}

func TestChartEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/charts/mean-bmi-by-label.svg")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "<svg") {
		t.Fatalf("chart = %d %.80s", resp.StatusCode, body)
	}
	if resp.Header.Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("content type = %s", resp.Header.Get("Content-Type"))
	}
	if resp, _ := get(t, ts.URL+"/charts/corr-heatmap.svg"); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("heatmap status = %d", resp.StatusCode)
	}
	if resp, _ := get(t, ts.URL+"/charts/nope.svg"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown figure status = %d", resp.StatusCode)
	}
}

type failingRunner struct{ err error }

func (f failingRunner) Run(pipeline.Params) (*pipeline.Result, error) { return nil, f.err }

func TestRunnerFailure(t *testing.T) {
	s := New(failingRunner{err: errors.New("boom")}, Options{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/category-mean", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "boom") {
		t.Fatalf("response = %d %s", rec.Code, rec.Body.String())
	}
}
