package quality

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/dub/measure"
)

// Project report constants.
const (
	ExportOverhead     = 1.2
	LongLineCharacters = 100
	snippetLength      = 30
)

// ProjectReport aggregates the line reports of a collection.
type ProjectReport struct {
	Lines           int
	Perfect         int
	Excellent       int
	NeedsAdjustment int
	Poor            int // Poor and very poor
	Counts          [statusCount]int
	Accuracy        float64
	AvgDeviation    time.Duration
	TotalDeviation  time.Duration
	Grade           string
	Recommendations []string
	ExportTime      time.Duration
	Confidence      float64
	Reports         []LineReport
}

// Count returns the number of lines with status s.
func (p ProjectReport) Count(s Status) int {
	if s < 0 || int(s) >= statusCount {
		return 0
	}
	return p.Counts[s]
}

// AnalyzeProject assesses every line from its recorded actual duration.
// An empty collection gives a zero report graded "N/A".
func (m *Monitor) AnalyzeProject(lines []dub.Line) ProjectReport {
	if len(lines) == 0 {
		return ProjectReport{Grade: "N/A"}
	}

	reports := make([]LineReport, 0, len(lines))
	for _, line := range lines {
		cal := measure.Calibration{
			Durations:  []time.Duration{line.ActualDuration},
			Mean:       line.ActualDuration,
			Confidence: AssumedConfidence,
			Min:        line.ActualDuration,
			Max:        line.ActualDuration,
		}
		reports = append(reports, m.AnalyzeLine(line, cal, m.analyzer.Analyze(line.Text)))
	}

	p := ProjectReport{Lines: len(lines), Reports: reports}

	var accuracy, confidence float64
	var target time.Duration
	for _, r := range reports {
		p.Counts[r.Status]++
		accuracy += r.Accuracy
		confidence += r.Confidence
		p.TotalDeviation += r.Difference
	}
	for _, line := range lines {
		target += line.TargetDuration()
	}

	n := len(reports)
	p.Perfect = p.Counts[Perfect]
	p.Excellent = p.Counts[Excellent]
	p.NeedsAdjustment = p.Counts[NeedsAdjustment]
	p.Poor = p.Counts[Poor] + p.Counts[VeryPoor]
	p.Accuracy = accuracy / float64(n)
	p.AvgDeviation = p.TotalDeviation / time.Duration(n)
	p.Grade = Grade(p.Accuracy)
	p.ExportTime = time.Duration(float64(target) * ExportOverhead)
	p.Confidence = confidence / float64(n)
	p.Recommendations = recommendations(p, lines)

	m.logger.Debug("Project analyzed",
		"lines", n,
		"accuracy", fmt.Sprintf("%.1f", p.Accuracy),
		"perfect", p.Perfect,
		"grade", p.Grade)

	return p
}

func recommendations(p ProjectReport, lines []dub.Line) []string {
	var recs []string

	if p.Poor > 0 {
		recs = append(recs, fmt.Sprintf("%d %s need an urgent resync", p.Poor, plural(p.Poor)))
	}
	if p.NeedsAdjustment > 0 {
		recs = append(recs, fmt.Sprintf("%d %s need a speed adjustment", p.NeedsAdjustment, plural(p.NeedsAdjustment)))
	}
	if p.Accuracy < 80 {
		recs = append(recs, "Overall accuracy is low, review the voice settings")
	}

	long := 0
	for _, line := range lines {
		if utf8.RuneCountInString(line.Text) > LongLineCharacters {
			long++
		}
	}
	if long > 0 {
		recs = append(recs, fmt.Sprintf("%d long %s may need a slower speed", long, plural(long)))
	}

	if len(recs) == 0 {
		recs = append(recs, "Sync quality is excellent, ready for export")
	}
	return recs
}

func plural(n int) string {
	if n == 1 {
		return "line"
	}
	return "lines"
}

// Statistics summarizes a set of line reports.
type Statistics struct {
	Lines         int
	AvgAccuracy   float64
	BestAccuracy  float64
	WorstAccuracy float64
	MostComplex   string // Snippet of the longest line
	Easiest       string // Snippet of the shortest line
	TimeSaved     time.Duration
}

// Collect computes statistics over reports and the lines they describe.
func Collect(reports []LineReport, lines []dub.Line) Statistics {
	s := Statistics{Lines: len(lines), MostComplex: "N/A", Easiest: "N/A"}

	for i, r := range reports {
		s.AvgAccuracy += r.Accuracy
		if i == 0 || r.Accuracy > s.BestAccuracy {
			s.BestAccuracy = r.Accuracy
		}
		if i == 0 || r.Accuracy < s.WorstAccuracy {
			s.WorstAccuracy = r.Accuracy
		}
		if r.Target > r.Actual {
			s.TimeSaved += r.Target - r.Actual
		}
	}
	if len(reports) > 0 {
		s.AvgAccuracy /= float64(len(reports))
	}

	longest, shortest := -1, -1
	for i, line := range lines {
		n := utf8.RuneCountInString(line.Text)
		if longest < 0 || n > utf8.RuneCountInString(lines[longest].Text) {
			longest = i
		}
		if shortest < 0 || n < utf8.RuneCountInString(lines[shortest].Text) {
			shortest = i
		}
	}
	if longest >= 0 {
		s.MostComplex = snippet(lines[longest].Text)
		s.Easiest = snippet(lines[shortest].Text)
	}

	return s
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) > snippetLength {
		return string(runes[:snippetLength])
	}
	return text
}
