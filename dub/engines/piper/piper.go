// Package piper drives the Piper offline speech engine as a subprocess.
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/internal/audio"
	"github.com/nashdub/dubsync/internal/cache"
)

// Limits applied to each synthesis request.
const (
	maxTextSize  = 5000
	maxAudioSize = 10 * 1024 * 1024 // 10MB
	cacheEntries = 64
)

// Runner executes the piper binary with args, feeding stdin, and returns
// its stdout.
type Runner func(ctx context.Context, binary string, args []string, stdin string) ([]byte, error)

// Engine implements dub.Synthesizer and dub.Renderer with a fresh Piper
// process per utterance. Text is written to stdin before the process
// starts, so no stdin race exists.
type Engine struct {
	config dub.PiperConfig
	player audio.Player
	run    Runner
	cache  *cache.Memory[[]byte]
	logger *log.Logger

	mu     sync.Mutex
	closed bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunner replaces the subprocess runner.
func WithRunner(r Runner) Option {
	return func(e *Engine) { e.run = r }
}

// WithPlayer sets the device Speak plays through. Without a player,
// utterances are timed from the length of the rendered audio.
func WithPlayer(p audio.Player) Option {
	return func(e *Engine) { e.player = p }
}

// New creates a Piper engine.
func New(config dub.PiperConfig, opts ...Option) (*Engine, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("model path is required: %w", dub.ErrInvalidConfig)
	}
	if config.ConfigPath == "" {
		config.ConfigPath = strings.TrimSuffix(config.Model, filepath.Ext(config.Model)) + ".json"
	}
	if config.Binary == "" {
		config.Binary = "piper"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 22050
	}
	if config.Timeout <= 0 {
		config.Timeout = dub.DefaultPiperConfig().Timeout
	}

	e := &Engine{
		config: config,
		run:    runProcess,
		cache:  cache.NewMemory[[]byte](cacheEntries),
		logger: log.Default().WithPrefix("piper"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Speak renders the utterance, then plays it. The start event is emitted
// when audio output begins.
func (e *Engine) Speak(ctx context.Context, u dub.Utterance) (<-chan dub.Event, error) {
	if e.isClosed() {
		return nil, dub.ErrEngineClosed
	}

	out := make(chan dub.Event, 2)
	go func() {
		defer close(out)

		pcm, err := e.synthesize(ctx, u)
		if err != nil {
			out <- dub.Event{Token: u.Token, Type: dub.EventError, At: time.Now(), Err: err}
			return
		}

		start := time.Now()
		out <- dub.Event{Token: u.Token, Type: dub.EventStart, At: start}

		if e.player == nil {
			d := dub.PCMDuration(len(pcm), e.config.SampleRate, 1)
			out <- dub.Event{Token: u.Token, Type: dub.EventDone, At: start.Add(d)}
			return
		}

		if err := e.player.Play(ctx, pcm); err != nil {
			out <- dub.Event{Token: u.Token, Type: dub.EventError, At: time.Now(), Err: err}
			return
		}
		out <- dub.Event{Token: u.Token, Type: dub.EventDone, At: time.Now()}
	}()
	return out, nil
}

// Render synthesizes the utterance without playing it.
func (e *Engine) Render(ctx context.Context, u dub.Utterance) (*dub.Audio, error) {
	if e.isClosed() {
		return nil, dub.ErrEngineClosed
	}
	pcm, err := e.synthesize(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dub.ErrRenderingFailed, err)
	}
	return &dub.Audio{
		Data:       pcm,
		SampleRate: e.config.SampleRate,
		Channels:   1,
		Duration:   dub.PCMDuration(len(pcm), e.config.SampleRate, 1),
	}, nil
}

// synthesize returns raw PCM for the utterance, from the cache when the
// same text, voice and speed was rendered before.
func (e *Engine) synthesize(ctx context.Context, u dub.Utterance) ([]byte, error) {
	if strings.TrimSpace(u.Text) == "" {
		return nil, dub.ErrEmptyText
	}
	if len(u.Text) > maxTextSize {
		return nil, fmt.Errorf("%w: %d characters (max %d)", dub.ErrTextTooLong, len(u.Text), maxTextSize)
	}

	speed := u.Speed
	if speed <= 0 {
		speed = dub.DefaultSpeed
	}
	speaker := e.speaker(u.Voice)
	key := cache.Key(u.Text, speaker, strconv.FormatFloat(speed, 'f', 2, 64))
	if pcm, ok := e.cache.Get(key); ok {
		return pcm, nil
	}

	// Speed 0.5 is length scale 2.0, speed 2.0 is length scale 0.5.
	args := []string{
		"--model", e.config.Model,
		"--config", e.config.ConfigPath,
		"--output-raw",
		"--length-scale", fmt.Sprintf("%.2f", 1.0/speed),
	}
	if speaker != "" {
		args = append(args, "--speaker", speaker)
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	e.logger.Debug("Running piper", "args", args, "chars", len(u.Text))
	pcm, err := e.run(ctx, e.config.Binary, args, u.Text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: synthesis timeout: %w", dub.ErrSynthesisFailed, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", dub.ErrSynthesisFailed, err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: piper produced no audio output", dub.ErrSynthesisFailed)
	}
	if len(pcm) > maxAudioSize {
		return nil, fmt.Errorf("%w: piper output too large: %d bytes (max %d)", dub.ErrSynthesisFailed, len(pcm), maxAudioSize)
	}

	e.cache.Put(key, pcm)
	return pcm, nil
}

// speaker resolves the numeric speaker for a voice id. Voice ids of the
// form "speaker-N" select N; anything else uses the configured speaker.
func (e *Engine) speaker(voice string) string {
	if n, ok := strings.CutPrefix(voice, "speaker-"); ok {
		if _, err := strconv.Atoi(n); err == nil {
			return n
		}
	}
	if e.config.Speaker > 0 {
		return strconv.Itoa(e.config.Speaker)
	}
	return ""
}

// Voices returns the model's default voice.
func (e *Engine) Voices() []dub.Voice {
	name := strings.TrimSuffix(filepath.Base(e.config.Model), filepath.Ext(e.config.Model))
	return []dub.Voice{{ID: "speaker-" + strconv.Itoa(e.config.Speaker), Name: name}}
}

// Capabilities returns Piper's capabilities.
func (e *Engine) Capabilities() dub.Capabilities {
	return dub.Capabilities{
		Engine:        "piper",
		SupportsSpeed: true,
		MaxTextLength: maxTextSize,
	}
}

// Close releases the player.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.cache.Clear()
	if e.player != nil {
		return e.player.Close()
	}
	return nil
}

// Validate checks that the binary and model are usable.
func (e *Engine) Validate() error {
	if _, err := exec.LookPath(e.config.Binary); err != nil {
		return fmt.Errorf("piper not found in PATH: %w", err)
	}
	if _, err := os.Stat(e.config.Model); err != nil {
		return fmt.Errorf("model file not accessible: %w", err)
	}
	return nil
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// runProcess runs piper, interrupting it first and killing it shortly after
// when ctx ends.
func runProcess(ctx context.Context, binary string, args []string, stdin string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 100 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("piper failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("piper failed: %w", err)
	}
	return stdout.Bytes(), nil
}
