package subtitle

import (
	"bytes"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/nashdub/dubsync/dub"
)

func newParser() *Parser {
	n := 0
	return New(
		WithLogger(log.New(io.Discard)),
		WithIDSource(func() string {
			n++
			return "line-" + strconv.Itoa(n)
		}),
	)
}

const sample = "1\r\n00:00:01,000 --> 00:00:03,500\r\nمرحبا بكم\r\nفي البرنامج\r\n\r\n" +
	"2\n00:00:04.2 --> 00:00:06,000\nSecond line\n\n" +
	"3\n00:00:07,000 --> 00:00:06,000\nInverted window\n\n" +
	"4\nno time line here\nstill nothing\n\n" +
	"5\n00:00:09,000 --> 00:00:10,000\n   \n\n" +
	"6\n00:00:11,000 --> 00:00:12,000\n"

// TestParseString tests block filtering and text joining.
func TestParseString(t *testing.T) {
	lines := newParser().ParseString(sample)
	require.Len(t, lines, 2)

	assert.Equal(t, "line-1", lines[0].ID)
	assert.Equal(t, "مرحبا بكم في البرنامج", lines[0].Text)
	assert.Equal(t, time.Second, lines[0].Start)
	assert.Equal(t, 3500*time.Millisecond, lines[0].End)
	assert.Equal(t, dub.DefaultSpeed, lines[0].Speed)

	assert.Equal(t, "Second line", lines[1].Text)
	assert.Equal(t, 4200*time.Millisecond, lines[1].Start)
}

// TestParseTimestamp tests timestamp normalization.
func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"00:00:01,000", time.Second, false},
		{"01:02:03,456", time.Hour + 2*time.Minute + 3*time.Second + 456*time.Millisecond, false},
		{" 00:00:02.5 ", 2500 * time.Millisecond, false},
		{"00:00:02,05", 2050 * time.Millisecond, false},
		{"00:00:02,12345", 2123 * time.Millisecond, false},
		{"00:00:03", 3 * time.Second, false},
		{"<b>00:01:00,000</b>", time.Minute, false},
		{"00:01", 0, true},
		{"garbage", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, dub.ErrBadTimestamp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestUnreadableStartCountsAsZero tests that a broken start time keeps the
// block.
func TestUnreadableStartCountsAsZero(t *testing.T) {
	lines := newParser().ParseString("1\nsoon --> 00:00:02,000\nhello\n")
	require.Len(t, lines, 1)
	assert.Zero(t, lines[0].Start)
	assert.Equal(t, 2*time.Second, lines[0].End)
}

// TestDecode tests BOM detection and the legacy fallback.
func TestDecode(t *testing.T) {
	text := "1\n00:00:01,000 --> 00:00:02,000\nسلام\n"

	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(text)
	require.NoError(t, err)
	legacy, err := charmap.Windows1256.NewEncoder().String(text)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"plain utf-8", []byte(text)},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, text...)},
		{"utf-16 bom", []byte(utf16)},
		{"windows-1256", []byte(legacy)},
	}

	p := newParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, text, got)
		})
	}
}

// TestParseBytesEmpty tests the no subtitles error.
func TestParseBytesEmpty(t *testing.T) {
	_, err := newParser().ParseBytes([]byte("not a subtitle file"))
	assert.ErrorIs(t, err, dub.ErrNoSubtitles)
}

// TestCharset tests code page lookup by label.
func TestCharset(t *testing.T) {
	enc, err := Charset("windows-1256")
	require.NoError(t, err)
	assert.Equal(t, charmap.Windows1256, enc)

	_, err = Charset("klingon")
	assert.Error(t, err)
}

// TestWriteRoundTrip tests that written files parse back to the same
// timing and text.
func TestWriteRoundTrip(t *testing.T) {
	in := []dub.Line{
		dub.NewLine("first", 1500*time.Millisecond, 3*time.Second),
		dub.NewLine("second", time.Hour, time.Hour+250*time.Millisecond),
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))
	assert.Contains(t, buf.String(), "1\n00:00:01,500 --> 00:00:03,000\nfirst\n")

	out, err := newParser().Parse(&buf)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.Equal(t, in[i].Text, out[i].Text)
		assert.Equal(t, in[i].Start, out[i].Start)
		assert.Equal(t, in[i].End, out[i].End)
	}
}

// TestFormatTimestamp tests clamping of negative values.
func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00,000", FormatTimestamp(-time.Second))
	assert.Equal(t, "10:00:00,001", FormatTimestamp(10*time.Hour+time.Millisecond))
}
