package sync

import (
	"time"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/dub/analysis"
	"github.com/nashdub/dubsync/dub/quality"
)

// manualReviewFactor is the overshoot past which a flagged line needs a
// human look.
const manualReviewFactor = 1.5

// Summary describes the sync state of a line collection.
type Summary struct {
	Lines          int
	Synced         int
	NeedsSync      int
	SyncPercentage float64
	// AvgOvershoot is the mean time by which actual durations exceed their
	// targets, counting lines that fit as zero.
	AvgOvershoot        time.Duration
	NeedsManualReview   bool
	AvgSpeed            float64
	AvgPitch            float64
	TotalTargetDuration time.Duration
	TotalActualDuration time.Duration
}

// Summarize computes the sync summary of lines.
func Summarize(lines []dub.Line) Summary {
	s := Summary{Lines: len(lines), AvgSpeed: dub.DefaultSpeed, AvgPitch: dub.DefaultPitch}
	if len(lines) == 0 {
		return s
	}

	var overshoot time.Duration
	var speed, pitch float64
	for _, l := range lines {
		target := l.TargetDuration()
		if l.NeedsSync() {
			s.NeedsSync++
			if float64(l.ActualDuration) > float64(target)*manualReviewFactor {
				s.NeedsManualReview = true
			}
		} else {
			s.Synced++
		}
		if l.ActualDuration > target {
			overshoot += l.ActualDuration - target
		}
		speed += l.Speed
		pitch += l.Pitch
		s.TotalTargetDuration += target
		s.TotalActualDuration += l.ActualDuration
	}

	n := len(lines)
	s.SyncPercentage = float64(s.Synced) * 100 / float64(n)
	s.AvgOvershoot = overshoot / time.Duration(n)
	s.AvgSpeed = speed / float64(n)
	s.AvgPitch = pitch / float64(n)
	return s
}

// QualityReport renders the project quality report as Markdown.
func (m *Manager) QualityReport(lines []dub.Line) string {
	p := m.monitor.AnalyzeProject(lines)
	return quality.FormatReport(p, quality.Collect(p.Reports, lines))
}

// LineAnalysis renders the text analysis of a line.
func (m *Manager) LineAnalysis(line dub.Line) string {
	return analysis.Report(m.analyzer.Analyze(line.Text))
}
