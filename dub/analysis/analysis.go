// Package analysis scores how hard a line of dialogue is to speak and
// derives a duration estimate and a recommended speed from it.
package analysis

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// Complexity is one of five ordered difficulty tiers.
type Complexity int

const (
	VerySimple Complexity = iota
	Simple
	Moderate
	Complex
	VeryComplex
)

// String returns the string representation of the tier.
func (c Complexity) String() string {
	switch c {
	case VerySimple:
		return "very_simple"
	case Simple:
		return "simple"
	case Moderate:
		return "moderate"
	case Complex:
		return "complex"
	case VeryComplex:
		return "very_complex"
	default:
		return "unknown"
	}
}

// ReadingLevel labels the reader skill a text calls for.
type ReadingLevel string

const (
	Beginner     ReadingLevel = "beginner"
	Intermediate ReadingLevel = "intermediate"
	Advanced     ReadingLevel = "advanced"
	Expert       ReadingLevel = "expert"
)

// TextAnalysis is the result of analyzing one text. It depends on the text
// only.
type TextAnalysis struct {
	Complexity        Complexity    `json:"complexity"`
	WordCount         int           `json:"word_count"`
	CharCount         int           `json:"char_count"`
	AvgWordLength     float64       `json:"avg_word_length"`
	Score             float64       `json:"score"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	Language          language.Tag  `json:"language"`
	ReadingLevel      ReadingLevel  `json:"reading_level"`
	RecommendedSpeed  float64       `json:"recommended_speed"`
}

// LanguageName returns the detected language tag, or "unknown".
func (a TextAnalysis) LanguageName() string {
	if a.Language == language.Und {
		return "unknown"
	}
	return a.Language.String()
}

// TextAnalyzer analyzes dialogue text.
type TextAnalyzer interface {
	Analyze(text string) TextAnalysis
}

// Duration estimate bounds.
const (
	MinEstimate = 800 * time.Millisecond
	MaxEstimate = 25000 * time.Millisecond
)

var (
	sentenceSplit   = regexp.MustCompile(`[.!?]+`)
	digits          = regexp.MustCompile(`\d+`)
	specialSymbols  = regexp.MustCompile(`[@#$%^&*()]`)
	nonWordOrSpace  = regexp.MustCompile(`[^\w\s]`)
	defaultAnalyzer = New()
)

// Analyze runs the default analyzer configured for Arabic script.
func Analyze(text string) TextAnalysis {
	return defaultAnalyzer.Analyze(text)
}

// Analyzer implements TextAnalyzer. The zero value is not usable; use New.
type Analyzer struct {
	script   *unicode.RangeTable
	language language.Tag
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithScript sets the script range and the language reported when most of
// a text falls inside it.
func WithScript(script *unicode.RangeTable, tag language.Tag) Option {
	return func(a *Analyzer) {
		a.script = script
		a.language = tag
	}
}

// ScriptRange builds a range table covering lo..hi inclusive.
func ScriptRange(lo, hi rune) *unicode.RangeTable {
	if hi <= 0xFFFF {
		return &unicode.RangeTable{R16: []unicode.Range16{{Lo: uint16(lo), Hi: uint16(hi), Stride: 1}}}
	}
	return &unicode.RangeTable{R32: []unicode.Range32{{Lo: uint32(lo), Hi: uint32(hi), Stride: 1}}}
}

// New creates an analyzer. Without options it detects the Arabic block
// U+0600..U+06FF.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		script:   ScriptRange(0x0600, 0x06FF),
		language: language.Arabic,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze implements TextAnalyzer.
func (a *Analyzer) Analyze(text string) TextAnalysis {
	words := extractWords(text)
	wordCount := len(words)
	charCount := utf8.RuneCountInString(text)

	avgWordLength := 0.0
	if wordCount > 0 {
		avgWordLength = float64(charCount) / float64(wordCount)
	}

	score := complexityScore(text, words, avgWordLength)
	tier := tierFor(score)

	return TextAnalysis{
		Complexity:        tier,
		WordCount:         wordCount,
		CharCount:         charCount,
		AvgWordLength:     avgWordLength,
		Score:             score,
		EstimatedDuration: estimateDuration(charCount, tier, wordCount),
		Language:          a.detectLanguage(text, charCount),
		ReadingLevel:      readingLevel(score, wordCount),
		RecommendedSpeed:  RecommendedSpeed(score),
	}
}

// extractWords splits on whitespace and drops single-character tokens as
// noise.
func extractWords(text string) []string {
	fields := strings.Fields(text)
	words := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			words = append(words, f)
		}
	}
	return words
}

func complexityScore(text string, words []string, avgWordLength float64) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	wordCount := len(words)
	perWord := float64(max(wordCount, 1))

	wordCountFactor := float64(clampInt(wordCount, 1, 50)) / 50 * 0.25
	wordLengthFactor := clamp(avgWordLength, 1, 10) / 10 * 0.20

	diversityFactor := 0.0
	if wordCount > 0 {
		unique := make(map[string]struct{}, wordCount)
		for _, w := range words {
			unique[w] = struct{}{}
		}
		diversityFactor = float64(len(unique)) / float64(wordCount) * 0.15
	}

	punctuation := strings.Count(text, ".") + strings.Count(text, ",") +
		strings.Count(text, "!") + strings.Count(text, "?") +
		strings.Count(text, ";") + strings.Count(text, ":")
	punctuationFactor := float64(punctuation) / perWord * 0.10

	structureFactor := clamp(float64(complexStructures(text))/5, 0, 1) * 0.15
	complexWordsFactor := float64(complexWords(words)) / perWord * 0.15

	score := wordCountFactor + wordLengthFactor + diversityFactor +
		punctuationFactor + structureFactor + complexWordsFactor
	return clamp(score, 0, 1)
}

func complexStructures(text string) int {
	count := 0
	for _, sentence := range sentenceSplit.Split(text, -1) {
		if utf8.RuneCountInString(sentence) > 100 {
			count++
		}
		if strings.Count(sentence, ",")+strings.Count(sentence, ";") > 2 {
			count++
		}
	}
	if digits.MatchString(text) {
		count++
	}
	if specialSymbols.MatchString(text) {
		count++
	}
	return count
}

func complexWords(words []string) int {
	count := 0
	for _, w := range words {
		if utf8.RuneCountInString(w) > 8 ||
			nonWordOrSpace.MatchString(w) ||
			strings.ContainsAny(w, "-_") {
			count++
		}
	}
	return count
}

func tierFor(score float64) Complexity {
	switch {
	case score < 0.2:
		return VerySimple
	case score < 0.4:
		return Simple
	case score < 0.6:
		return Moderate
	case score < 0.8:
		return Complex
	default:
		return VeryComplex
	}
}

func readingLevel(score float64, wordCount int) ReadingLevel {
	switch {
	case score < 0.3 && wordCount < 10:
		return Beginner
	case score < 0.5:
		return Intermediate
	case score < 0.7:
		return Advanced
	default:
		return Expert
	}
}

// RecommendedSpeed maps a complexity score to a base speed: simple text can
// be spoken faster, dense text slower.
func RecommendedSpeed(score float64) float64 {
	switch {
	case score < 0.3:
		return 1.2
	case score < 0.6:
		return 1.0
	default:
		return 0.8
	}
}

// WordRate returns the per-word base duration of a tier.
func WordRate(tier Complexity) time.Duration {
	switch tier {
	case VerySimple:
		return 70 * time.Millisecond
	case Simple:
		return 85 * time.Millisecond
	case Moderate:
		return 105 * time.Millisecond
	case Complex:
		return 130 * time.Millisecond
	default:
		return 160 * time.Millisecond
	}
}

// LengthAdjustment scales estimates for very short and very long texts.
func LengthAdjustment(charCount int) float64 {
	switch {
	case charCount < 30:
		return 0.8
	case charCount > 200:
		return 1.3
	default:
		return 1.0
	}
}

func estimateDuration(charCount int, tier Complexity, wordCount int) time.Duration {
	ms := float64(WordRate(tier).Milliseconds()*int64(wordCount)) * LengthAdjustment(charCount)
	d := time.Duration(int64(ms)) * time.Millisecond
	return min(max(d, MinEstimate), MaxEstimate)
}

func (a *Analyzer) detectLanguage(text string, charCount int) language.Tag {
	if charCount == 0 || a.script == nil {
		return language.Und
	}
	inScript := 0
	for _, r := range text {
		if unicode.Is(a.script, r) {
			inScript++
		}
	}
	if float64(inScript)/float64(charCount) > 0.5 {
		return a.language
	}
	return language.Und
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
