package analysis

import (
	"fmt"
	"math"
	"strings"
)

// Compare returns how alike two analyses are in [0,1], weighting the
// duration estimate 60% and the complexity score 40%.
func Compare(a, b TextAnalysis) float64 {
	durationSimilarity := 1.0
	if longest := max(a.EstimatedDuration, b.EstimatedDuration); longest > 0 {
		diff := a.EstimatedDuration - b.EstimatedDuration
		if diff < 0 {
			diff = -diff
		}
		durationSimilarity = 1 - float64(diff)/float64(longest)
	}

	complexitySimilarity := 1 - math.Abs(a.Score-b.Score)

	return clamp(durationSimilarity*0.6+complexitySimilarity*0.4, 0, 1)
}

// Report renders an analysis for display.
func Report(a TextAnalysis) string {
	var b strings.Builder
	b.WriteString("Text analysis\n")
	fmt.Fprintf(&b, "  Complexity:         %s (%.2f)\n", a.Complexity, a.Score)
	fmt.Fprintf(&b, "  Words:              %d\n", a.WordCount)
	fmt.Fprintf(&b, "  Avg word length:    %.1f\n", a.AvgWordLength)
	fmt.Fprintf(&b, "  Reading level:      %s\n", a.ReadingLevel)
	fmt.Fprintf(&b, "  Language:           %s\n", a.LanguageName())
	fmt.Fprintf(&b, "  Recommended speed:  %.1fx\n", a.RecommendedSpeed)
	fmt.Fprintf(&b, "  Estimated duration: %d ms", a.EstimatedDuration.Milliseconds())
	return b.String()
}
