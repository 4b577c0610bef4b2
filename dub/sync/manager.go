// Package sync fits dialogue lines into their timing windows, either from
// text heuristics or from measurements against a speech engine.
package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/dub/analysis"
	"github.com/nashdub/dubsync/dub/measure"
	"github.com/nashdub/dubsync/dub/quality"
)

// Defaults for a sync pass.
const (
	DefaultConfidenceThreshold = 0.5
	DefaultQuickTolerance      = 1.2

	// estimateConfidence is assigned to text estimates standing in for a
	// measurement.
	estimateConfidence = 0.3
)

// Progress is called after each line of a smart sync pass with the number
// of lines done and the total.
type Progress func(done, total int)

// StateObserver is called on every line state change of a smart sync pass.
type StateObserver func(lineID string, from, to dub.LineState)

// Manager runs sync passes. It is stateless between passes.
type Manager struct {
	analyzer  analysis.TextAnalyzer
	measurer  *measure.Measurer
	monitor   *quality.Monitor
	threshold float64
	tolerance float64
	observer  StateObserver
	logger    *log.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig applies sync settings.
func WithConfig(cfg dub.SyncConfig) Option {
	return func(m *Manager) {
		m.measurer = measure.New(
			measure.WithTrials(cfg.Trials),
			measure.WithTrialDelay(cfg.TrialDelay),
			measure.WithLogger(m.logger),
		)
		if cfg.ConfidenceThreshold > 0 {
			m.threshold = cfg.ConfidenceThreshold
		}
		if cfg.QuickTolerance > 0 {
			m.tolerance = cfg.QuickTolerance
		}
	}
}

// WithAnalyzer sets the text analyzer used by every strategy.
func WithAnalyzer(a analysis.TextAnalyzer) Option {
	return func(m *Manager) { m.analyzer = a }
}

// WithMeasurer sets the duration measurer.
func WithMeasurer(ms *measure.Measurer) Option {
	return func(m *Manager) { m.measurer = ms }
}

// WithObserver sets the line state observer.
func WithObserver(fn StateObserver) Option {
	return func(m *Manager) { m.observer = fn }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New creates a Manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		analyzer:  analysis.New(),
		threshold: DefaultConfidenceThreshold,
		tolerance: DefaultQuickTolerance,
		logger:    log.Default().WithPrefix("sync"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.measurer == nil {
		m.measurer = measure.New(measure.WithLogger(m.logger))
	}
	m.monitor = quality.New(quality.WithAnalyzer(m.analyzer), quality.WithLogger(m.logger))
	return m
}

// Monitor returns the quality monitor sharing the manager's analyzer.
func (m *Manager) Monitor() *quality.Monitor {
	return m.monitor
}

// Smart measures every line against synth in order and applies a speed
// derived from the measurement. Lines are processed one at a time; a line
// that fails is logged and returned unchanged. When ctx ends between lines
// the lines done so far are returned together with the untouched rest and
// ctx's error. The input slice is never modified.
func (m *Manager) Smart(ctx context.Context, synth dub.Synthesizer, lines []dub.Line, progress Progress) ([]dub.Line, quality.ProjectReport, error) {
	if synth == nil {
		return nil, quality.ProjectReport{}, dub.ErrNoSynthesizer
	}

	m.logger.Info("Starting smart sync", "lines", len(lines), "engine", synth.Capabilities().Engine)

	results := make([]dub.Line, 0, len(lines))
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			results = append(results, lines[i:]...)
			m.logger.Warn("Smart sync canceled", "done", i, "total", len(lines))
			return results, m.monitor.AnalyzeProject(results), err
		}

		results = append(results, m.syncMeasured(ctx, synth, line))
		if progress != nil {
			progress(i+1, len(lines))
		}
		m.logger.Debug("Line synced", "line", i+1, "total", len(lines))
	}

	report := m.monitor.AnalyzeProject(results)
	m.logger.Info("Smart sync finished",
		"grade", report.Grade,
		"accuracy", fmt.Sprintf("%.1f", report.Accuracy),
		"needsAdjustment", report.NeedsAdjustment,
		"poor", report.Poor)

	return results, report, nil
}

// syncMeasured runs one line through the measurement state machine.
func (m *Manager) syncMeasured(ctx context.Context, synth dub.Synthesizer, line dub.Line) (out dub.Line) {
	out = line
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Line sync failed", "line", line.ID, "err", r)
			out = line
		}
	}()

	sm := m.stateMachine(line.ID)
	a := m.analyzer.Analyze(line.Text)

	var cal measure.Calibration
	if strings.TrimSpace(line.Text) == "" {
		est := measure.EstimateFromText(line.Text, a.Complexity)
		cal = measure.Calibration{Mean: est, Confidence: estimateConfidence}
	} else {
		advance(sm, dub.StateMeasuring)
		cal = m.measurer.Measure(ctx, synth, line.Text, line.Voice)
		if !cal.Available() {
			advance(sm, dub.StateMeasureFailed)
			advance(sm, dub.StateClassified)
			m.logger.Warn("Measurement unavailable, keeping line", "line", line.ID)
			advance(sm, dub.StateApplied)
			return line
		}
		advance(sm, dub.StateMeasured)
	}

	// A noisy measurement is replaced by the text estimate. Blank text
	// already carries one.
	trusted := cal.Confidence >= m.threshold
	if !trusted && sm.Current() == dub.StateMeasured {
		cal.Mean = a.EstimatedDuration
	}
	actual := cal.Mean

	report := m.monitor.AnalyzeLine(line, cal, a)
	speed := a.RecommendedSpeed
	if trusted {
		speed = report.RecommendedSpeed
	}
	advance(sm, dub.StateClassified)

	out = line.WithSync(speed, actual, report.NeedsSync())
	advance(sm, dub.StateApplied)

	m.logger.Debug("Line classified",
		"line", line.ID,
		"status", report.Status,
		"accuracy", fmt.Sprintf("%.1f", report.Accuracy),
		"confidence", fmt.Sprintf("%.2f", cal.Confidence),
		"speed", fmt.Sprintf("%.2f", out.Speed))
	return out
}

func (m *Manager) stateMachine(lineID string) *dub.StateMachine {
	sm := dub.NewStateMachine()
	if m.observer == nil {
		return sm
	}
	prev := sm.Current()
	for _, s := range []dub.LineState{
		dub.StateMeasuring, dub.StateMeasured, dub.StateMeasureFailed,
		dub.StateClassified, dub.StateApplied,
	} {
		sm.OnEnter(s, func() {
			m.observer(lineID, prev, s)
			prev = s
		})
	}
	return sm
}

// advance moves sm to state. An illegal edge is a programming error.
func advance(sm *dub.StateMachine, to dub.LineState) {
	from := sm.Current()
	if !sm.Transition(to) {
		panic(fmt.Errorf("%w: %s to %s", dub.ErrStateTransition, from, to))
	}
}

// SyncLine analyzes one line from its text estimate alone. It uses the
// line's recorded duration for the speed when one exists.
func (m *Manager) SyncLine(line dub.Line) (out dub.Line) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Line analysis failed", "line", line.ID, "err", r)
			out = line
		}
	}()

	a := m.analyzer.Analyze(line.Text)
	est := measure.EstimateFromText(line.Text, a.Complexity)
	cal := measure.Calibration{
		Durations:  []time.Duration{est},
		Mean:       est,
		Confidence: estimateConfidence,
		Min:        est,
		Max:        est,
	}
	report := m.monitor.AnalyzeLine(line, cal, a)

	speed := a.RecommendedSpeed
	if line.ActualDuration > 0 {
		speed = quality.OptimalSpeed(line, line.ActualDuration, a.Complexity)
	}

	m.logger.Debug("Line analyzed",
		"line", line.ID,
		"accuracy", fmt.Sprintf("%.1f", report.Accuracy),
		"speed", fmt.Sprintf("%.2f", speed))

	return line.WithSync(speed, est, report.NeedsSync())
}

// ApplyCorrections sets the optimal speed on every flagged line with a
// recorded duration and clears its flag.
func (m *Manager) ApplyCorrections(lines []dub.Line) []dub.Line {
	out := dub.Clone(lines)
	for i, line := range out {
		if !line.NeedsSync() || line.ActualDuration <= 0 {
			continue
		}
		out[i] = line.Synced(m.monitor.OptimalSpeed(line, line.ActualDuration))
	}
	return out
}
