package sync

import (
	"time"
	"unicode/utf8"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/dub/analysis"
)

// Bounds of the quick estimate.
const (
	minQuickEstimate = 800 * time.Millisecond
	maxQuickEstimate = 25 * time.Second
)

// Quick estimates every line from its text and flags lines whose estimate
// overshoots the target by more than the tolerance. Flagged lines take the
// recommended speed of their text. No engine is involved and equal input
// gives equal output.
func (m *Manager) Quick(lines []dub.Line) []dub.Line {
	out := make([]dub.Line, len(lines))
	for i, line := range lines {
		a := m.analyzer.Analyze(line.Text)
		est := QuickEstimate(line.Text, a.Complexity, a.WordCount)

		needsSync := float64(est) > float64(line.TargetDuration())*m.tolerance
		speed := line.Speed
		if needsSync {
			speed = a.RecommendedSpeed
		}
		out[i] = line.WithSync(speed, est, needsSync)
	}
	return out
}

// QuickEstimate is the word based estimate of the quick strategy.
func QuickEstimate(text string, tier analysis.Complexity, words int) time.Duration {
	var perWord int64
	switch tier {
	case analysis.VerySimple:
		perWord = 70
	case analysis.Simple:
		perWord = 85
	case analysis.Moderate:
		perWord = 105
	case analysis.Complex:
		perWord = 130
	default:
		perWord = 160
	}

	adjust := 1.0
	switch n := utf8.RuneCountInString(text); {
	case n < 30:
		adjust = 0.8
	case n > 200:
		adjust = 1.3
	}

	d := time.Duration(int64(float64(perWord*int64(words))*adjust)) * time.Millisecond
	return min(max(d, minQuickEstimate), maxQuickEstimate)
}
