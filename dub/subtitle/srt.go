// Package subtitle reads and writes SubRip (.srt) subtitle files.
package subtitle

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/nashdub/dubsync/dub"
)

var (
	blockSeparator = regexp.MustCompile(`(\r\n|\n){2,}`)
	lineSeparator  = regexp.MustCompile(`\r\n|\n`)
	timestampNoise = regexp.MustCompile(`[^0-9:.]`)
)

// Parser turns SRT content into dialogue lines.
type Parser struct {
	charset encoding.Encoding
	newID   func() string
	logger  *log.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithCharset sets the legacy code page used for content that is not valid
// UTF-8 and carries no byte order mark.
func WithCharset(enc encoding.Encoding) Option {
	return func(p *Parser) {
		if enc != nil {
			p.charset = enc
		}
	}
}

// WithIDSource overrides line identifier generation.
func WithIDSource(fn func() string) Option {
	return func(p *Parser) { p.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// New creates a Parser falling back to Windows-1256.
func New(opts ...Option) *Parser {
	p := &Parser{
		charset: charmap.Windows1256,
		newID:   dub.NewLineID,
		logger:  log.Default().WithPrefix("srt"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Charset looks up a code page by its WHATWG name or label, e.g.
// "windows-1256" or "latin1".
func Charset(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", name, err)
	}
	return enc, nil
}

// ParseFile reads and parses an SRT file.
func (p *Parser) ParseFile(path string) ([]dub.Line, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("read subtitles: %w", err)
	}
	return p.ParseBytes(data)
}

// Parse reads all of r and parses it.
func (p *Parser) Parse(r io.Reader) ([]dub.Line, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read subtitles: %w", err)
	}
	return p.ParseBytes(data)
}

// ParseBytes decodes raw file content and parses it. It fails with
// dub.ErrNoSubtitles when no usable block is found.
func (p *Parser) ParseBytes(data []byte) ([]dub.Line, error) {
	content, err := p.Decode(data)
	if err != nil {
		return nil, err
	}
	lines := p.ParseString(content)
	if len(lines) == 0 {
		return nil, dub.ErrNoSubtitles
	}
	return lines, nil
}

// Decode converts file content to UTF-8. A byte order mark selects UTF-8
// or UTF-16; content without one is used as is when it is valid UTF-8 and
// decoded with the legacy charset otherwise.
func (p *Parser) Decode(data []byte) (string, error) {
	fallback := encoding.Nop.NewDecoder()
	if !utf8.Valid(data) && !hasBOM(data) {
		fallback = p.charset.NewDecoder()
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), data)
	if err != nil {
		return "", fmt.Errorf("decode subtitles: %w", err)
	}
	return string(out), nil
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE})
}

// ParseString parses decoded SRT content. Blocks without a time line, with
// an empty or inverted window, or without text are skipped.
func (p *Parser) ParseString(content string) []dub.Line {
	blocks := blockSeparator.Split(strings.TrimSpace(content), -1)

	var lines []dub.Line
	for i, block := range blocks {
		line, ok := p.parseBlock(i, block)
		if ok {
			lines = append(lines, line)
		}
	}

	p.logger.Debug("Parsed subtitles", "blocks", len(blocks), "lines", len(lines))
	return lines
}

func (p *Parser) parseBlock(index int, block string) (dub.Line, bool) {
	rows := lineSeparator.Split(strings.TrimSpace(block), -1)
	if len(rows) < 3 {
		p.logger.Debug("Skipping short block", "block", index, "rows", len(rows))
		return dub.Line{}, false
	}

	timeRow := -1
	for i, row := range rows {
		if strings.Contains(row, "-->") {
			timeRow = i
			break
		}
	}
	if timeRow < 0 {
		p.logger.Debug("Skipping block without time line", "block", index)
		return dub.Line{}, false
	}

	times := strings.Split(rows[timeRow], "-->")
	if len(times) != 2 {
		return dub.Line{}, false
	}
	start := p.timestamp(times[0])
	end := p.timestamp(times[1])
	if start < 0 || end <= start {
		p.logger.Debug("Skipping block with invalid window", "block", index, "start", start, "end", end)
		return dub.Line{}, false
	}

	var text []string
	for _, row := range rows[timeRow+1:] {
		if strings.Contains(row, "-->") || strings.TrimSpace(row) == "" {
			continue
		}
		text = append(text, row)
	}
	joined := strings.TrimSpace(strings.Join(text, " "))
	if joined == "" {
		p.logger.Debug("Skipping block without text", "block", index)
		return dub.Line{}, false
	}

	line := dub.NewLine(joined, start, end)
	line.ID = p.newID()
	return line, true
}

// timestamp parses a time in a time line. Unreadable times count as zero.
func (p *Parser) timestamp(s string) time.Duration {
	d, err := ParseTimestamp(s)
	if err != nil {
		p.logger.Debug("Unreadable timestamp", "value", strings.TrimSpace(s), "err", err)
		return 0
	}
	return d
}

// ParseTimestamp parses "HH:MM:SS,mmm". A dot may replace the comma, stray
// characters are ignored and missing millisecond digits are padded.
func ParseTimestamp(s string) (time.Duration, error) {
	clean := timestampNoise.ReplaceAllString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), "")

	parts := strings.Split(clean, ":")
	if len(parts) < 3 {
		return 0, fmt.Errorf("%w: %q", dub.ErrBadTimestamp, s)
	}

	secs, frac, _ := strings.Cut(parts[2], ".")
	var millis int64
	if frac != "" {
		frac = (frac + "00")[:3]
		millis = number(frac)
	}

	d := time.Duration(number(parts[0]))*time.Hour +
		time.Duration(number(parts[1]))*time.Minute +
		time.Duration(number(secs))*time.Second +
		time.Duration(millis)*time.Millisecond
	return d, nil
}

func number(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FormatTimestamp formats d as "HH:MM:SS,mmm". Negative durations format
// as zero.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}

// Write writes lines as SRT blocks numbered from 1.
func Write(w io.Writer, lines []dub.Line) error {
	for i, line := range lines {
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1, FormatTimestamp(line.Start), FormatTimestamp(line.End), line.Text); err != nil {
			return fmt.Errorf("write subtitles: %w", err)
		}
	}
	return nil
}
