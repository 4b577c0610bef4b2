package quality

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatReport renders a project report and its statistics as Markdown.
func FormatReport(p ProjectReport, s Statistics) string {
	var b strings.Builder

	b.WriteString("# Sync quality report\n\n")

	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "- **Grade:** %s\n", p.Grade)
	fmt.Fprintf(&b, "- **Overall accuracy:** %.1f%%\n", p.Accuracy)
	fmt.Fprintf(&b, "- **Lines:** %s\n", humanize.Comma(int64(p.Lines)))
	fmt.Fprintf(&b, "- **Confidence:** %.0f%%\n\n", p.Confidence*100)

	b.WriteString("## Distribution\n\n")
	b.WriteString("| Status | Lines |\n|---|---|\n")
	for st := Perfect; st <= VeryPoor; st++ {
		fmt.Fprintf(&b, "| %s | %d |\n", st, p.Count(st))
	}
	b.WriteString("\n")

	b.WriteString("## Timing\n\n")
	fmt.Fprintf(&b, "- **Average deviation:** %s ms\n", humanize.Comma(p.AvgDeviation.Milliseconds()))
	fmt.Fprintf(&b, "- **Total deviation:** %s ms\n", humanize.Comma(p.TotalDeviation.Milliseconds()))
	fmt.Fprintf(&b, "- **Estimated export time:** %s s\n\n", humanize.Comma(int64(p.ExportTime.Seconds())))

	b.WriteString("## Recommendations\n\n")
	for _, rec := range p.Recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	b.WriteString("\n")

	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(&b, "- **Best accuracy:** %.1f%%\n", s.BestAccuracy)
	fmt.Fprintf(&b, "- **Worst accuracy:** %.1f%%\n", s.WorstAccuracy)
	fmt.Fprintf(&b, "- **Longest line:** %s\n", s.MostComplex)
	fmt.Fprintf(&b, "- **Shortest line:** %s\n", s.Easiest)
	fmt.Fprintf(&b, "- **Time saved:** %s ms\n", humanize.Comma(s.TimeSaved.Milliseconds()))

	return b.String()
}
