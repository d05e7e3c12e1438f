package pipeline

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/KaramelBytes/healthlens-cli/internal/dataset"
	"github.com/KaramelBytes/healthlens-cli/internal/logging"
)

// Session owns one dataset source and caches pipeline results per parameter set.
// The table is reloaded when the source file's modification time or size changes.
// It is safe for concurrent use.
type Session struct {
	path string
	opt  dataset.Options

	mu      sync.Mutex
	table   *dataset.Table
	modTime time.Time
	size    int64
	gen     int
	cache   map[string]*Result
}

// NewSession prepares a session for path. The source is not read until first use.
func NewSession(path string, opt dataset.Options) *Session {
	return &Session{path: path, opt: opt, cache: map[string]*Result{}}
}

// Path returns the configured source path.
func (s *Session) Path() string { return s.path }

// Generation counts successful loads of the source.
func (s *Session) Generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Table returns the current table, loading or reloading it as needed.
func (s *Session) Table() (*dataset.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tableLocked()
}

func (s *Session) tableLocked() (*dataset.Table, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dataset.ErrSourceUnavailable, err)
	}
	if s.table != nil && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.table, nil
	}
	t, err := dataset.Load(s.path, s.opt)
	if err != nil {
		return nil, err
	}
	s.table, s.modTime, s.size = t, info.ModTime(), info.Size()
	s.gen++
	s.cache = map[string]*Result{}
	logging.LogEvent("session: loaded %s (records=%d generation=%d)", s.path, t.Len(), s.gen)
	return t, nil
}

// Run returns the cached result for params, computing it on a miss.
func (s *Session) Run(params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tableLocked()
	if err != nil {
		return nil, err
	}
	if r, ok := s.cache[params.key()]; ok {
		return r, nil
	}
	r, err := Run(t, params)
	if err != nil {
		return nil, err
	}
	s.cache[params.key()] = r
	return r, nil
}

// Invalidate forgets the loaded table so the next call re-reads the source.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = nil
	s.cache = map[string]*Result{}
}
