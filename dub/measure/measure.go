// Package measure times speech empirically by running repeated synthesis
// trials against an engine.
package measure

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/internal/id"
	"github.com/nashdub/dubsync/internal/logging"
)

// Defaults for batch calibration.
const (
	DefaultTrials     = 3
	DefaultTrialDelay = 100 * time.Millisecond
)

// Calibration summarizes repeated duration measurements of one text.
// The zero value means the measurement is unavailable.
type Calibration struct {
	Durations  []time.Duration
	Mean       time.Duration
	StdDev     time.Duration
	Confidence float64
	Min        time.Duration
	Max        time.Duration
}

// Available reports whether at least one trial succeeded.
func (c Calibration) Available() bool {
	return len(c.Durations) > 0 && c.Confidence > 0
}

// Measurer runs calibration trials. It holds no engine; the engine is
// passed to every call by its owner.
type Measurer struct {
	trials   int
	delay    time.Duration
	token    func() string
	logger   *log.Logger
	recorder *logging.Recorder
}

// Option configures a Measurer.
type Option func(*Measurer)

// WithTrials sets the number of trials per measurement.
func WithTrials(n int) Option {
	return func(m *Measurer) {
		if n > 0 {
			m.trials = n
		}
	}
}

// WithTrialDelay sets the settle delay inserted between trials.
func WithTrialDelay(d time.Duration) Option {
	return func(m *Measurer) {
		if d >= 0 {
			m.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Measurer) { m.logger = l }
}

// WithRecorder records every trial in r.
func WithRecorder(r *logging.Recorder) Option {
	return func(m *Measurer) { m.recorder = r }
}

// WithTokenSource overrides request token generation.
func WithTokenSource(fn func() string) Option {
	return func(m *Measurer) { m.token = fn }
}

// New creates a Measurer with 3 trials spaced 100ms apart.
func New(opts ...Option) *Measurer {
	m := &Measurer{
		trials: DefaultTrials,
		delay:  DefaultTrialDelay,
		token:  func() string { return id.MustGenerate(id.PrefixTrial) },
		logger: log.Default().WithPrefix("measure"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Trials returns the configured number of trials.
func (m *Measurer) Trials() int {
	return m.trials
}

// Measure speaks text repeatedly with neutral speed and pitch and
// summarizes the elapsed times between start and done events. Failed
// trials are skipped; when every trial fails the zero Calibration is
// returned.
func (m *Measurer) Measure(ctx context.Context, synth dub.Synthesizer, text, voice string) Calibration {
	samples := make([]time.Duration, 0, m.trials)

	for i := 0; i < m.trials; i++ {
		if i > 0 && !m.settle(ctx) {
			break
		}

		d, err := m.trial(ctx, synth, text, voice)
		if err != nil {
			m.logger.Debug("Measurement trial failed", "trial", i+1, "err", err)
			continue
		}
		samples = append(samples, d)
	}

	cal := Summarize(samples, m.trials)
	m.logger.Debug("Measurement finished",
		"samples", len(samples),
		"mean", cal.Mean,
		"stddev", cal.StdDev,
		"confidence", fmt.Sprintf("%.2f", cal.Confidence))
	return cal
}

// Quick runs a single trial.
func (m *Measurer) Quick(ctx context.Context, synth dub.Synthesizer, text, voice string) (time.Duration, error) {
	return m.trial(ctx, synth, text, voice)
}

// trial resolves exactly once: to the elapsed time between the start and
// done events of its own token, or to an error.
func (m *Measurer) trial(ctx context.Context, synth dub.Synthesizer, text, voice string) (d time.Duration, err error) {
	if synth == nil {
		return 0, dub.ErrNoSynthesizer
	}

	if m.recorder != nil {
		rec := m.recorder.StartTrial(synth.Capabilities().Engine, text)
		defer func() { rec.End(d, err) }()
	}

	token := m.token()
	events, err := synth.Speak(ctx, dub.Utterance{
		Token: token,
		Text:  text,
		Voice: voice,
		Speed: dub.DefaultSpeed,
		Pitch: dub.DefaultPitch,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", dub.ErrSynthesisFailed, err)
	}

	var started time.Time
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return 0, fmt.Errorf("%w: event stream closed before completion", dub.ErrSynthesisFailed)
			}
			if ev.Token != token {
				continue
			}

			at := ev.At
			if at.IsZero() {
				at = time.Now()
			}

			switch ev.Type {
			case dub.EventStart:
				if started.IsZero() {
					started = at
				}
			case dub.EventDone:
				if started.IsZero() {
					return 0, fmt.Errorf("%w: done event without start", dub.ErrSynthesisFailed)
				}
				elapsed := at.Sub(started)
				if elapsed <= 0 {
					return 0, fmt.Errorf("%w: zero-length utterance", dub.ErrSynthesisFailed)
				}
				return elapsed, nil
			case dub.EventError:
				if ev.Err != nil {
					return 0, fmt.Errorf("%w: %w", dub.ErrSynthesisFailed, ev.Err)
				}
				return 0, dub.ErrSynthesisFailed
			}
		}
	}
}

// settle waits the trial delay. It returns false when ctx ends first.
func (m *Measurer) settle(ctx context.Context) bool {
	if m.delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(m.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Summarize computes the statistics and confidence of a set of samples
// taken out of requested trials.
func Summarize(samples []time.Duration, requested int) Calibration {
	n := len(samples)
	if n == 0 || requested <= 0 {
		return Calibration{}
	}

	var sum float64
	lo, hi := samples[0], samples[0]
	for _, s := range samples {
		sum += float64(s)
		lo = min(lo, s)
		hi = max(hi, s)
	}
	mean := sum / float64(n)

	stddev := 0.0
	if n > 1 {
		var sq float64
		for _, s := range samples {
			diff := float64(s) - mean
			sq += diff * diff
		}
		stddev = math.Sqrt(sq / float64(n))
	}

	durations := make([]time.Duration, n)
	copy(durations, samples)

	return Calibration{
		Durations:  durations,
		Mean:       time.Duration(mean),
		StdDev:     time.Duration(stddev),
		Confidence: confidence(mean, stddev, float64(hi-lo), n, requested),
		Min:        lo,
		Max:        hi,
	}
}

func confidence(mean, stddev, spread float64, n, requested int) float64 {
	if mean <= 0 {
		return 0
	}
	cvScore := 1 - clamp(stddev/mean, 0, 1)
	sampleScore := clamp(float64(n)/float64(requested), 0, 1)

	consistency := 1.0
	if n > 1 {
		consistency = 1 - clamp(spread/mean, 0, 1)
	}

	return clamp(cvScore*0.5+sampleScore*0.3+consistency*0.2, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
