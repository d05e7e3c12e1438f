package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/KaramelBytes/healthlens-cli/internal/logging"
	"github.com/KaramelBytes/healthlens-cli/internal/pipeline"
	"github.com/KaramelBytes/healthlens-cli/internal/report"
	"github.com/gorilla/mux"
)

// Runner produces pipeline results. *pipeline.Session satisfies it.
type Runner interface {
	Run(params pipeline.Params) (*pipeline.Result, error)
}

// Options configures request defaults and page rendering.
type Options struct {
	DefaultMetric string
	Bins          int
	HTML          report.HTMLOptions
}

// Server serves the report page, chart images, and a JSON API over one Runner.
type Server struct {
	runner Runner
	opt    Options
	router *mux.Router
}

// New builds a Server and registers its routes.
func New(runner Runner, opt Options) *Server {
	if opt.DefaultMetric == "" {
		opt.DefaultMetric = pipeline.DefaultParams().Metric
	}
	s := &Server{runner: runner, opt: opt, router: mux.NewRouter()}
	s.router.Use(logRequests)
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/category-mean", s.handleCategoryMean).Methods(http.MethodGet)
	s.router.HandleFunc("/api/pipeline", s.handlePipeline).Methods(http.MethodPost)
	s.router.HandleFunc("/charts/{id:[a-z0-9-]+}.svg", s.handleChart).Methods(http.MethodGet)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s", r.URL.Path))
	})
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.LogEvent("server: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logging.LogEvent("server: stopped")
		return nil
	}
}

// params reads ?metric= with the configured default.
func (s *Server) params(r *http.Request) (pipeline.Params, error) {
	p := pipeline.Params{Metric: r.URL.Query().Get("metric"), Bins: s.opt.Bins}
	if p.Metric == "" {
		p.Metric = s.opt.DefaultMetric
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func (s *Server) run(w http.ResponseWriter, p pipeline.Params) (*pipeline.Result, bool) {
	res, err := s.runner.Run(p)
	if err != nil {
		writeError(w, statusFor(err), err)
		return nil, false
	}
	return res, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	p, err := s.params(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	res, ok := s.run(w, p)
	if !ok {
		return
	}
	opt := s.opt.HTML
	opt.MetricLinks = true
	var buf bytes.Buffer
	if err := report.HTML(&buf, res, opt); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type meanRow struct {
	Label string   `json:"label"`
	Mean  *float64 `json:"mean"`
}

func (s *Server) handleCategoryMean(w http.ResponseWriter, r *http.Request) {
	p, err := s.params(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	res, ok := s.run(w, p)
	if !ok {
		return
	}
	fig, found := res.Figure(pipeline.MeanID(p.Metric))
	if !found || fig.Failed() {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("category mean for %s unavailable", p.Metric))
		return
	}
	labels, _ := fig.Frame.Col(fig.X)
	means, _ := fig.Frame.Col(fig.Y)
	rows := make([]meanRow, 0, labels.Len())
	for i := 0; i < labels.Len(); i++ {
		row := meanRow{Label: labels.Strings[i]}
		if !math.IsNaN(means.Floats[i]) {
			row.Mean = &means.Floats[i]
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, map[string]any{"metric": p.Metric, "rows": rows})
}

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	p, err := pipeline.ParseParamsJSON(body)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	res, ok := s.run(w, p)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := s.params(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	res, ok := s.run(w, p)
	if !ok {
		return
	}
	fig, found := res.Figure(id)
	if !found {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown figure %q", id))
		return
	}
	opt := s.opt.HTML.Chart
	opt.Format = "svg"
	var buf bytes.Buffer
	if err := report.RenderChart(&buf, fig, opt); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(buf.Bytes())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrNotChartable):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
