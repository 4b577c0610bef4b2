package measure

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nashdub/dubsync/dub/analysis"
)

// Bounds of EstimateFromText.
const (
	MinTextEstimate = 500 * time.Millisecond
	MaxTextEstimate = 15 * time.Second
)

// CharRate returns the per-character duration used by EstimateFromText.
func CharRate(tier analysis.Complexity) time.Duration {
	switch tier {
	case analysis.VerySimple:
		return 85 * time.Millisecond
	case analysis.Simple:
		return 95 * time.Millisecond
	case analysis.Moderate:
		return 110 * time.Millisecond
	case analysis.Complex:
		return 130 * time.Millisecond
	default:
		return 160 * time.Millisecond
	}
}

// EstimateFromText is the character based fallback estimate used when no
// measurement can be taken. Very short utterances are sped up and very
// long ones slowed down.
func EstimateFromText(text string, tier analysis.Complexity) time.Duration {
	chars := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))

	ms := float64(chars) * float64(CharRate(tier).Milliseconds())
	switch {
	case words < 3:
		ms *= 0.8
	case words > 15:
		ms *= 1.3
	}

	d := time.Duration(int64(ms)) * time.Millisecond
	return min(max(d, MinTextEstimate), MaxTextEstimate)
}

// Accuracy compares an estimate with a measurement. 1 is a perfect match.
func Accuracy(estimated, actual time.Duration) float64 {
	hi := max(estimated, actual)
	if hi <= 0 {
		return 0
	}
	diff := estimated - actual
	if diff < 0 {
		diff = -diff
	}
	return math.Max(0, 1-float64(diff)/float64(hi))
}

// MeasurementQuality labels a calibration by its confidence.
type MeasurementQuality string

// Measurement quality labels.
const (
	QualityExcellent MeasurementQuality = "excellent"
	QualityGood      MeasurementQuality = "good"
	QualityFair      MeasurementQuality = "fair"
	QualityPoor      MeasurementQuality = "poor"
)

// Quality returns the label of a calibration.
func Quality(c Calibration) MeasurementQuality {
	switch {
	case c.Confidence > 0.8:
		return QualityExcellent
	case c.Confidence > 0.6:
		return QualityGood
	case c.Confidence > 0.4:
		return QualityFair
	default:
		return QualityPoor
	}
}
