// Package export renders a line collection into one timed WAV file.
//
// Lines are laid out on the source timeline: silence fills the gap up to
// each line's start, then the rendered speech follows. A line that fails to
// render is replaced by silence of its target duration so later lines keep
// their position.
package export

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nashdub/dubsync/dub"
	dubsync "github.com/nashdub/dubsync/dub/sync"
	"github.com/nashdub/dubsync/internal/id"
)

// ErrNoValidLines is returned when no line has text and a positive window.
var ErrNoValidLines = errors.New("no valid lines to export")

// Result describes a finished export.
type Result struct {
	Path     string
	Lines    []dub.Line // Input lines with rendered durations recorded
	Rendered int
	Failed   int
	Duration time.Duration
	Bytes    int64
}

// Exporter renders lines through a speech engine.
type Exporter struct {
	renderer dub.Renderer
	format   Format
	manager  *dubsync.Manager
	logger   *log.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithSampleRate sets the output sample rate.
func WithSampleRate(rate int) Option {
	return func(e *Exporter) {
		if rate > 0 {
			e.format.SampleRate = rate
		}
	}
}

// WithManager sets the sync manager used by Enhanced.
func WithManager(m *dubsync.Manager) Option {
	return func(e *Exporter) { e.manager = m }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// New creates an Exporter writing 22050 Hz mono WAV.
func New(renderer dub.Renderer, opts ...Option) *Exporter {
	e := &Exporter{
		renderer: renderer,
		format:   Format{SampleRate: DefaultSampleRate, Channels: Channels},
		logger:   log.Default().WithPrefix("export"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.manager == nil {
		e.manager = dubsync.New(dubsync.WithLogger(e.logger))
	}
	return e
}

// Format returns the output format.
func (e *Exporter) Format() Format {
	return e.format
}

// Valid reports whether a line takes part in an export.
func Valid(l dub.Line) bool {
	return strings.TrimSpace(l.Text) != "" && l.End > l.Start
}

// Enhanced runs a quick sync pass, applies the speed corrections and
// exports the result to path.
func (e *Exporter) Enhanced(ctx context.Context, lines []dub.Line, path string, progress dubsync.Progress) (Result, error) {
	corrected := e.manager.ApplyCorrections(e.manager.Quick(lines))
	e.logger.Info("Applied corrections before export", "lines", len(corrected))
	return e.ExportFile(ctx, corrected, path, progress)
}

// ExportFile exports lines to path. The file only appears once the export
// has completed.
func (e *Exporter) ExportFile(ctx context.Context, lines []dub.Line, path string, progress dubsync.Progress) (Result, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.wav")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	res, err := e.Export(ctx, lines, tmp, progress)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close export file: %w", cerr)
	}
	if err != nil {
		return res, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return res, fmt.Errorf("failed to move export file: %w", err)
	}

	res.Path = path
	e.logger.Info("Exported audio", "path", path, "duration", res.Duration, "rendered", res.Rendered, "failed", res.Failed)
	return res, nil
}

// Export renders lines into w. Progress fires once per valid line.
func (e *Exporter) Export(ctx context.Context, lines []dub.Line, w io.WriteSeeker, progress dubsync.Progress) (Result, error) {
	if e.renderer == nil {
		return Result{}, fmt.Errorf("%w: export needs a renderer", dub.ErrEngineNotCapable)
	}

	order := make([]int, 0, len(lines))
	for i, l := range lines {
		if Valid(l) {
			order = append(order, i)
		}
	}
	if len(order) == 0 {
		return Result{}, ErrNoValidLines
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(lines[a].Start, lines[b].Start)
	})

	wav, err := NewWAVWriter(w, e.format)
	if err != nil {
		return Result{}, err
	}

	res := Result{Lines: dub.Clone(lines)}
	var position time.Duration
	for n, i := range order {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line := lines[i]

		if gap := line.Start - position; gap > 0 {
			if err := wav.WriteSilence(gap); err != nil {
				return res, err
			}
			position += gap
		}

		pcm, err := e.render(ctx, line)
		switch {
		case err == nil:
			if _, err := wav.Write(pcm); err != nil {
				return res, fmt.Errorf("write speech: %w", err)
			}
			d := e.format.Duration(int64(len(pcm)))
			position += d
			res.Lines[i] = line.WithActualDuration(d)
			res.Rendered++
		case ctx.Err() != nil:
			return res, ctx.Err()
		default:
			e.logger.Warn("Rendering failed, writing silence", "line", line.ID, "err", err)
			target := line.TargetDuration()
			if err := wav.WriteSilence(target); err != nil {
				return res, err
			}
			position += target
			res.Failed++
		}

		if progress != nil {
			progress(n+1, len(order))
		}
	}

	if err := wav.Close(); err != nil {
		return res, err
	}
	res.Duration = wav.Duration()
	res.Bytes = wav.Size() + HeaderSize
	return res, nil
}

func (e *Exporter) render(ctx context.Context, line dub.Line) ([]byte, error) {
	audio, err := e.renderer.Render(ctx, dub.Utterance{
		Token: id.MustGenerate(id.PrefixExport),
		Text:  line.Text,
		Voice: line.Voice,
		Speed: line.Speed,
		Pitch: line.Pitch,
	})
	if err != nil {
		return nil, err
	}
	if audio == nil || len(audio.Data) == 0 {
		return nil, fmt.Errorf("%w: no audio data", dub.ErrRenderingFailed)
	}
	return Convert(audio.Data, Format{SampleRate: audio.SampleRate, Channels: audio.Channels}, e.format.SampleRate)
}
