// Package logging configures the process logger and records measurement
// trial metrics.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Setup configures the default logger. Logs go to stderr, or to file when
// one is given. The returned closer releases the log file.
func Setup(level, file string) (func() error, error) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var out io.Writer = os.Stderr
	closer := func() error { return nil }

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, fmt.Errorf("unable to create log directory: %w", err)
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("unable to open log file: %w", err)
		}
		out = f
		closer = f.Close
	}

	log.SetDefault(log.NewWithOptions(out, log.Options{
		ReportTimestamp: file != "",
		TimeFormat:      time.RFC3339,
		Level:           lvl,
	}))
	log.Debug("Logging initialized", "level", lvl, "file", file)

	return closer, nil
}

// Component returns a prefixed sub-logger of the default logger.
func Component(name string) *log.Logger {
	return log.Default().WithPrefix(name)
}

// Trial holds the metrics of one measurement trial.
type Trial struct {
	Engine     string
	TextLength int
	Start      time.Time
	Elapsed    time.Duration
	Measured   time.Duration
	Err        error

	recorder *Recorder
}

// Recorder collects trial metrics.
type Recorder struct {
	mu     sync.Mutex
	trials []Trial
	logger *log.Logger
}

// NewRecorder creates a recorder logging through logger. A nil logger
// uses the default logger.
func NewRecorder(logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{logger: logger}
}

// StartTrial starts tracking a trial.
func (r *Recorder) StartTrial(engine, text string) *Trial {
	t := &Trial{
		Engine:     engine,
		TextLength: len([]rune(text)),
		Start:      time.Now(),
		recorder:   r,
	}
	r.logger.Debug("Trial started", "engine", engine, "textLength", t.TextLength)
	return t
}

// End completes a trial with the measured speech duration or an error.
func (t *Trial) End(measured time.Duration, err error) {
	t.Elapsed = time.Since(t.Start)
	t.Measured = measured
	t.Err = err

	r := t.recorder
	r.mu.Lock()
	r.trials = append(r.trials, *t)
	r.mu.Unlock()

	if err != nil {
		r.logger.Debug("Trial failed", "engine", t.Engine, "elapsed", t.Elapsed, "err", err)
		return
	}
	r.logger.Debug("Trial completed",
		"engine", t.Engine,
		"measured", t.Measured,
		"elapsed", t.Elapsed)
}

// Summary aggregates recorded trials.
type Summary struct {
	Trials       int
	Failures     int
	MeanMeasured time.Duration
	MeanElapsed  time.Duration
}

// Summary returns aggregate metrics over all recorded trials.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{Trials: len(r.trials)}
	var measured, elapsed time.Duration
	for _, t := range r.trials {
		elapsed += t.Elapsed
		if t.Err != nil {
			s.Failures++
			continue
		}
		measured += t.Measured
	}
	if ok := s.Trials - s.Failures; ok > 0 {
		s.MeanMeasured = measured / time.Duration(ok)
	}
	if s.Trials > 0 {
		s.MeanElapsed = elapsed / time.Duration(s.Trials)
	}
	return s
}

// String formats the summary for logs.
func (s Summary) String() string {
	return fmt.Sprintf("%d trials, %d failed, mean speech %s, mean wall %s",
		s.Trials, s.Failures, s.MeanMeasured.Round(time.Millisecond), s.MeanElapsed.Round(time.Millisecond))
}
