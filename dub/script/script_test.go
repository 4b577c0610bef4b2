package script

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(t *testing.T, n int, got func(int) string) []string {
	t.Helper()
	out := make([]string, n)
	for i := range out {
		out[i] = got(i)
	}
	return out
}

// TestSplit tests marker splitting and timing.
func TestSplit(t *testing.T) {
	lines := Split("* مرحبا\n*   كيف حالك اليوم يا صديقي\n*\n* " + strings.Repeat("word ", 30))
	require.Len(t, lines, 3)

	assert.Equal(t, "مرحبا", lines[0].Text)
	assert.Equal(t, "كيف حالك اليوم يا صديقي", lines[1].Text)

	assert.Equal(t, time.Duration(0), lines[0].Start)
	assert.Equal(t, 2*time.Second, lines[0].End)
	assert.Equal(t, 5*time.Second, lines[1].Start)
	assert.Equal(t, 7500*time.Millisecond, lines[1].End)
	assert.Equal(t, 10*time.Second, lines[2].Start)
	assert.Equal(t, 20*time.Second, lines[2].End)

	assert.NotEqual(t, lines[0].ID, lines[1].ID)
}

// TestSplitLeadingText tests text before the first marker.
func TestSplitLeadingText(t *testing.T) {
	lines := Split("intro * first")
	require.Len(t, lines, 2)
	assert.Equal(t, "intro", lines[0].Text)
	assert.Equal(t, "first", lines[1].Text)
}

// TestSplitEmpty tests scripts without content.
func TestSplitEmpty(t *testing.T) {
	assert.Empty(t, Split(""))
	assert.Empty(t, Split("* \n *\n"))
}

// TestParseMarkdown tests list item extraction.
func TestParseMarkdown(t *testing.T) {
	src := `# Episode one

Some narration that is not a line.

- Hello **there**, friend
- A second line
  wrapped over two rows
  - nested reply
1. Numbered line with ` + "`code`" + `
`
	lines := ParseMarkdown([]byte(src))
	got := texts(t, len(lines), func(i int) string { return lines[i].Text })

	assert.Equal(t, []string{
		"Hello there, friend",
		"A second line wrapped over two rows",
		"nested reply",
		"Numbered line with code",
	}, got)
	assert.Equal(t, 15*time.Second, lines[3].Start)
}

// TestDuration tests the word based window.
func TestDuration(t *testing.T) {
	tests := []struct {
		text string
		want time.Duration
	}{
		{"", 2 * time.Second},
		{"one two three four", 2 * time.Second},
		{"one two three four five", 2500 * time.Millisecond},
		{strings.Repeat("w ", 25), 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Duration(tt.text), "text %q", tt.text)
	}
	assert.Equal(t, 3, WordCount(" a  b\tc "))
}
