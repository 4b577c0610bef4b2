// Package quality classifies how well dialogue lines fit their timing
// windows and reports on whole projects.
package quality

import (
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/dub/analysis"
	"github.com/nashdub/dubsync/dub/measure"
)

// AssumedConfidence is the confidence given to recorded durations when a
// project is assessed without fresh measurements.
const AssumedConfidence = 0.8

// LineReport is the sync assessment of one line.
type LineReport struct {
	LineID           string
	Target           time.Duration
	Actual           time.Duration
	Difference       time.Duration
	Accuracy         float64 // Percent, 100 is a perfect fit
	Status           Status
	RecommendedSpeed float64
	Recommendation   string
	Confidence       float64
	ReadingLevel     analysis.ReadingLevel
	Complexity       analysis.Complexity
	Score            float64 // Quality score in [0,100]
}

// NeedsSync reports whether the line should be resynced.
func (r LineReport) NeedsSync() bool {
	return r.Status.NeedsSync()
}

// Monitor assesses sync quality.
type Monitor struct {
	analyzer analysis.TextAnalyzer
	logger   *log.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithAnalyzer sets the text analyzer.
func WithAnalyzer(a analysis.TextAnalyzer) Option {
	return func(m *Monitor) { m.analyzer = a }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// New creates a Monitor.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		analyzer: analysis.New(),
		logger:   log.Default().WithPrefix("quality"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AnalyzeLine assesses a line against a calibration of its speech.
func (m *Monitor) AnalyzeLine(line dub.Line, cal measure.Calibration, a analysis.TextAnalysis) LineReport {
	target := line.TargetDuration()
	actual := cal.Mean
	diff := absDuration(target - actual)
	acc := Accuracy(target, actual)
	status := StatusFor(acc)

	return LineReport{
		LineID:           line.ID,
		Target:           target,
		Actual:           actual,
		Difference:       diff,
		Accuracy:         acc,
		Status:           status,
		RecommendedSpeed: OptimalSpeed(line, actual, a.Complexity),
		Recommendation:   status.Recommendation(),
		Confidence:       cal.Confidence,
		ReadingLevel:     a.ReadingLevel,
		Complexity:       a.Complexity,
		Score:            Score(acc, cal.Confidence, a.Score),
	}
}

// OptimalSpeed returns the speed that fits actual into the line's window,
// analyzing the line text for its tier.
func (m *Monitor) OptimalSpeed(line dub.Line, actual time.Duration) float64 {
	return OptimalSpeed(line, actual, m.analyzer.Analyze(line.Text).Complexity)
}

// Accuracy returns how closely actual matches target as a percentage. It is
// 0 for a non-positive target.
func Accuracy(target, actual time.Duration) float64 {
	if target <= 0 {
		return 0
	}
	diff := absDuration(target - actual)
	return float64(target-diff) * 100 / float64(target)
}

// OptimalSpeed scales the line speed by actual/target and bounds the result
// to what the complexity tier tolerates. Degenerate durations keep the
// current speed unclamped, so the tier bounds only hold for a positive
// target and measured duration.
func OptimalSpeed(line dub.Line, actual time.Duration, tier analysis.Complexity) float64 {
	target := line.TargetDuration()
	if target <= 0 || actual <= 0 {
		return line.Speed
	}

	required := float64(actual) / float64(target) * line.Speed
	lo, hi := SpeedBounds(tier)
	if math.IsNaN(required) {
		return lo
	}
	return math.Max(lo, math.Min(hi, required))
}

// SpeedBounds returns the speed range of a complexity tier. Denser text
// tolerates less correction.
func SpeedBounds(tier analysis.Complexity) (lo, hi float64) {
	switch tier {
	case analysis.VerySimple:
		return 0.5, 2.5
	case analysis.Simple:
		return 0.5, 2.2
	case analysis.Moderate:
		return 0.6, 2.0
	case analysis.Complex:
		return 0.7, 1.8
	default:
		return 0.8, 1.6
	}
}

// Score blends accuracy (50%), confidence (30%) and inverse complexity
// (20%) into a quality score in [0,100].
func Score(accuracy, confidence, complexity float64) float64 {
	s := (accuracy/100*0.5 + confidence*0.3 + (1-complexity)*0.2) * 100
	return math.Max(0, math.Min(100, s))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
