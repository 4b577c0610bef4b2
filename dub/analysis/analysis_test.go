package analysis

import (
	"math"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/nashdub/dubsync/internal/cache"
)

// TestAnalyzeSingleWord tests the short single word case.
func TestAnalyzeSingleWord(t *testing.T) {
	a := Analyze("hello")

	if a.WordCount != 1 {
		t.Errorf("Expected 1 word, got %d", a.WordCount)
	}
	if a.CharCount != 5 {
		t.Errorf("Expected 5 chars, got %d", a.CharCount)
	}
	if a.Complexity > Simple {
		t.Errorf("Expected very simple or simple, got %s", a.Complexity)
	}
	if math.Abs(a.Score-0.255) > 1e-9 {
		t.Errorf("Expected score 0.255, got %.4f", a.Score)
	}
	if a.EstimatedDuration != MinEstimate {
		t.Errorf("Expected estimate clamped to %s, got %s", MinEstimate, a.EstimatedDuration)
	}
	if a.ReadingLevel != Beginner {
		t.Errorf("Expected beginner, got %s", a.ReadingLevel)
	}
	if a.RecommendedSpeed != 1.2 {
		t.Errorf("Expected speed 1.2, got %.1f", a.RecommendedSpeed)
	}
	if a.LanguageName() != "unknown" {
		t.Errorf("Expected unknown language, got %s", a.LanguageName())
	}
}

// TestAnalyzeEmpty tests that empty text yields neutral defaults.
func TestAnalyzeEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		a := Analyze(text)
		if a.Score != 0 {
			t.Errorf("Analyze(%q) score = %.2f, want 0", text, a.Score)
		}
		if a.Complexity != VerySimple {
			t.Errorf("Analyze(%q) tier = %s, want very_simple", text, a.Complexity)
		}
		if a.WordCount != 0 {
			t.Errorf("Analyze(%q) words = %d, want 0", text, a.WordCount)
		}
		if a.EstimatedDuration != MinEstimate {
			t.Errorf("Analyze(%q) estimate = %s, want %s", text, a.EstimatedDuration, MinEstimate)
		}
	}
}

// TestAnalyzeArabic tests script based language detection.
func TestAnalyzeArabic(t *testing.T) {
	a := Analyze("مرحبا بكم في الاستوديو")

	if a.WordCount != 4 {
		t.Errorf("Expected 4 words, got %d", a.WordCount)
	}
	if a.Language != language.Arabic {
		t.Errorf("Expected Arabic, got %s", a.LanguageName())
	}
	if a.Complexity != Moderate {
		t.Errorf("Expected moderate, got %s (score %.3f)", a.Complexity, a.Score)
	}
}

// TestAnalyzeCustomScript tests a configured script range.
func TestAnalyzeCustomScript(t *testing.T) {
	greek := New(WithScript(ScriptRange(0x0370, 0x03FF), language.Greek))

	if got := greek.Analyze("καλημέρα κόσμε").Language; got != language.Greek {
		t.Errorf("Expected Greek, got %s", got)
	}
	if got := greek.Analyze("مرحبا").Language; got != language.Und {
		t.Errorf("Expected undetermined, got %s", got)
	}
}

// TestNoiseTokens tests that single characters are not counted as words.
func TestNoiseTokens(t *testing.T) {
	a := Analyze("a b c hello - world")
	if a.WordCount != 2 {
		t.Errorf("Expected 2 words, got %d", a.WordCount)
	}
}

// TestAnalyzeBounds tests score and estimate bounds over varied inputs.
func TestAnalyzeBounds(t *testing.T) {
	inputs := []string{
		"",
		"x",
		"hello",
		"Hello, world! How are you? Fine; thanks: bye.",
		"The well-known snake_case identifiers, numbers 12345, and symbols @#$ all add up!!!",
		strings.Repeat("word ", 300),
		strings.Repeat("extraordinarily-complicated_terminology, ", 80),
		strings.Repeat("،؟ كلمة ", 500),
	}

	for _, text := range inputs {
		a := Analyze(text)
		if a.Score < 0 || a.Score > 1 {
			t.Errorf("score %.3f out of [0,1] for %.20q", a.Score, text)
		}
		if a.EstimatedDuration < MinEstimate || a.EstimatedDuration > MaxEstimate {
			t.Errorf("estimate %s out of bounds for %.20q", a.EstimatedDuration, text)
		}
	}
}

// TestLongTextEstimateCap tests the 25s ceiling.
func TestLongTextEstimateCap(t *testing.T) {
	a := Analyze(strings.Repeat("word ", 300))
	if a.EstimatedDuration != MaxEstimate {
		t.Errorf("Expected estimate capped at %s, got %s", MaxEstimate, a.EstimatedDuration)
	}
}

// TestTierThresholds tests the fixed tier thresholds and their ordering.
func TestTierThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  Complexity
	}{
		{0, VerySimple},
		{0.1999, VerySimple},
		{0.2, Simple},
		{0.3999, Simple},
		{0.4, Moderate},
		{0.6, Complex},
		{0.7999, Complex},
		{0.8, VeryComplex},
		{1, VeryComplex},
	}

	for _, tt := range tests {
		if got := tierFor(tt.score); got != tt.want {
			t.Errorf("tierFor(%.4f) = %s, want %s", tt.score, got, tt.want)
		}
	}

	prev := tierFor(0)
	for s := 0.0; s <= 1.0; s += 0.001 {
		tier := tierFor(s)
		if tier < prev {
			t.Fatalf("tier decreased at score %.3f", s)
		}
		prev = tier
	}
}

// TestRecommendedSpeed tests the speed breakpoints.
func TestRecommendedSpeed(t *testing.T) {
	tests := []struct {
		score float64
		want  float64
	}{
		{0, 1.2},
		{0.29, 1.2},
		{0.3, 1.0},
		{0.59, 1.0},
		{0.6, 0.8},
		{1, 0.8},
	}
	for _, tt := range tests {
		if got := RecommendedSpeed(tt.score); got != tt.want {
			t.Errorf("RecommendedSpeed(%.2f) = %.1f, want %.1f", tt.score, got, tt.want)
		}
	}
}

// TestReadingLevel tests reading level thresholds.
func TestReadingLevel(t *testing.T) {
	tests := []struct {
		score float64
		words int
		want  ReadingLevel
	}{
		{0.1, 3, Beginner},
		{0.1, 12, Intermediate},
		{0.45, 3, Intermediate},
		{0.6, 20, Advanced},
		{0.9, 20, Expert},
	}
	for _, tt := range tests {
		if got := readingLevel(tt.score, tt.words); got != tt.want {
			t.Errorf("readingLevel(%.2f, %d) = %s, want %s", tt.score, tt.words, got, tt.want)
		}
	}
}

// TestEstimateDuration tests the length adjustment of the word formula.
func TestEstimateDuration(t *testing.T) {
	tests := []struct {
		name  string
		chars int
		tier  Complexity
		words int
		want  time.Duration
	}{
		{"floor", 10, VerySimple, 2, MinEstimate},
		{"plain", 100, Moderate, 20, 2100 * time.Millisecond},
		{"short text", 29, VeryComplex, 10, 1280 * time.Millisecond},
		{"long text", 201, Complex, 40, 6760 * time.Millisecond},
		{"ceiling", 1000, VeryComplex, 500, MaxEstimate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := estimateDuration(tt.chars, tt.tier, tt.words); got != tt.want {
				t.Errorf("estimateDuration() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestDeterministic tests that analysis has no hidden state.
func TestDeterministic(t *testing.T) {
	text := "Numbers like 42, symbols (like these) and long-winded phrases."
	if Analyze(text) != Analyze(text) {
		t.Error("Analyze should be deterministic")
	}
}

// TestCompare tests analysis similarity.
func TestCompare(t *testing.T) {
	a := Analyze("a short line")
	if got := Compare(a, a); got != 1 {
		t.Errorf("Identical analyses should compare as 1, got %.3f", got)
	}

	b := Analyze(strings.Repeat("a much longer and rather more elaborate line, ", 20))
	got := Compare(a, b)
	if got <= 0 || got >= 1 {
		t.Errorf("Different analyses should compare strictly between 0 and 1, got %.3f", got)
	}
	if Compare(a, b) != Compare(b, a) {
		t.Error("Compare should be symmetric")
	}
}

// TestReport tests the display report.
func TestReport(t *testing.T) {
	r := Report(Analyze("hello"))
	for _, want := range []string{"simple", "beginner", "1.2x", "800 ms"} {
		if !strings.Contains(r, want) {
			t.Errorf("Report missing %q:\n%s", want, r)
		}
	}
}

type countingAnalyzer struct {
	calls int
}

func (c *countingAnalyzer) Analyze(text string) TextAnalysis {
	c.calls++
	return Analyze(text)
}

// TestCached tests memoization through the cache tiers.
func TestCached(t *testing.T) {
	store, err := cache.NewTiered[TextAnalysis](cache.DefaultConfig())
	if err != nil {
		t.Fatalf("NewTiered failed: %v", err)
	}

	counter := &countingAnalyzer{}
	cached := NewCached(counter, store, "test")

	first := cached.Analyze("مرحبا بكم")
	second := cached.Analyze("مرحبا بكم")

	if counter.calls != 1 {
		t.Errorf("Expected one underlying analysis, got %d", counter.calls)
	}
	if first != second {
		t.Error("Cached analysis should match the original")
	}

	cached.Analyze("something else")
	if counter.calls != 2 {
		t.Errorf("Different text should miss the cache, got %d calls", counter.calls)
	}
}

// TestCachedDisk tests that analyses survive on disk.
func TestCachedDisk(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.DiskPath = t.TempDir()

	store, err := cache.NewTiered[TextAnalysis](cfg)
	if err != nil {
		t.Fatalf("NewTiered failed: %v", err)
	}
	want := NewCached(New(), store, "disk").Analyze("مرحبا بكم في الاستوديو")
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := cache.NewTiered[TextAnalysis](cfg)
	if err != nil {
		t.Fatalf("NewTiered failed: %v", err)
	}
	defer reopened.Close() //nolint:errcheck

	counter := &countingAnalyzer{}
	got := NewCached(counter, reopened, "disk").Analyze("مرحبا بكم في الاستوديو")

	if counter.calls != 0 {
		t.Error("Expected the analysis to come from disk")
	}
	if got.Language != want.Language || got.Score != want.Score {
		t.Errorf("Disk round trip changed the analysis: %+v vs %+v", got, want)
	}
}
