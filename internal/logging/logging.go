package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	logFile *os.File
)

// Init routes the standard logger to stderr (when verbose) and to logPath (when set).
// With neither, log output is discarded.
func Init(logPath string, verbose bool) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writers []io.Writer
	if verbose {
		writers = append(writers, os.Stderr)
	}
	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create log dir: %w", err)
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = file
		writers = append(writers, logFile)
	}

	switch len(writers) {
	case 0:
		log.SetOutput(io.Discard)
	case 1:
		log.SetOutput(writers[0])
	default:
		log.SetOutput(io.MultiWriter(writers...))
	}
	return nil
}

// Close releases the log file, if any, and points the logger back at stderr.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

func LogEvent(format string, args ...any) {
	log.Println(fmt.Sprintf(format, args...))
}

// LogRequest records one served HTTP request.
func LogRequest(method, path string, status int, elapsed time.Duration) {
	log.Println(buildRequestMessage(method, path, status, elapsed))
}

func buildRequestMessage(method, path string, status int, elapsed time.Duration) string {
	m := strings.ToUpper(strings.TrimSpace(method))
	if m == "" {
		m = "GET"
	}
	p := strings.TrimSpace(path)
	if p == "" {
		p = "/"
	}
	return fmt.Sprintf("[HTTP] %s %s status=%d elapsed=%s", m, p, status, elapsed.Round(time.Millisecond))
}
