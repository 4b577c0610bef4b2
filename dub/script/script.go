// Package script turns written dialogue scripts into timed lines.
//
// A plain script marks the start of each line with '*'. A Markdown script
// uses list items. Line i starts at i*5s and lasts 500ms per word, between
// 2s and 10s.
package script

import (
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/nashdub/dubsync/dub"
)

// Timing of generated lines.
const (
	Spacing     = 5 * time.Second
	PerWord     = 500 * time.Millisecond
	MinDuration = 2 * time.Second
	MaxDuration = 10 * time.Second
)

var marker = regexp.MustCompile(`(?m)\*\s*`)

// Split creates one line per '*' separated piece of text. Empty pieces are
// dropped.
func Split(script string) []dub.Line {
	var texts []string
	for _, piece := range marker.Split(script, -1) {
		if t := strings.TrimSpace(piece); t != "" {
			texts = append(texts, t)
		}
	}
	return Lines(texts)
}

// ParseMarkdown creates one line per list item of a Markdown document.
// Nested lists become lines of their own.
func ParseMarkdown(source []byte) []dub.Line {
	reader := text.NewReader(source)
	doc := goldmark.New().Parser().Parse(reader)

	var texts []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if item, ok := n.(*ast.ListItem); ok {
			if t := itemText(item, reader.Source()); t != "" {
				texts = append(texts, t)
			}
		}
		return ast.WalkContinue, nil
	})
	return Lines(texts)
}

// itemText collects the inline text of an item without its nested lists.
func itemText(item *ast.ListItem, source []byte) string {
	var buf strings.Builder
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if _, nested := c.(*ast.List); nested {
			continue
		}
		writeText(c, source, &buf)
		buf.WriteByte(' ')
	}
	return strings.Join(strings.Fields(buf.String()), " ")
}

func writeText(n ast.Node, source []byte, buf *strings.Builder) {
	switch n := n.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			buf.WriteByte(' ')
		}
		return
	case *ast.String:
		buf.Write(n.Value)
		return
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
		return
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		writeText(c, source, buf)
	}
}

// Lines lays out texts one after another with word based durations.
func Lines(texts []string) []dub.Line {
	lines := make([]dub.Line, 0, len(texts))
	for i, t := range texts {
		start := time.Duration(i) * Spacing
		lines = append(lines, dub.NewLine(t, start, start+Duration(t)))
	}
	return lines
}

// Duration returns the speaking window allotted to text.
func Duration(text string) time.Duration {
	d := time.Duration(len(strings.Fields(text))) * PerWord
	return min(max(d, MinDuration), MaxDuration)
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
