package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Errors returned by players.
var (
	ErrEmptyAudio     = errors.New("audio data is empty")
	ErrPlayerClosed   = errors.New("player is closed")
	ErrFormatMismatch = errors.New("audio format differs from the open device")
)

// Player plays signed 16-bit little-endian PCM. Play blocks until the audio
// has finished or ctx ends.
type Player interface {
	Play(ctx context.Context, pcm []byte) error
	Close() error
}

// Format describes a PCM stream.
type Format struct {
	SampleRate int
	Channels   int
}

// pollInterval is how often playback completion is checked.
const pollInterval = 10 * time.Millisecond

// oto allows one context per process, so every Player shares it.
var (
	contextOnce   sync.Once
	sharedContext *oto.Context
	sharedFormat  Format
	contextErr    error
)

func deviceContext(f Format) (*oto.Context, error) {
	contextOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   f.SampleRate,
			ChannelCount: f.Channels,
			Format:       oto.FormatSignedInt16LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			contextErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		sharedContext = ctx
		sharedFormat = f
	})
	if contextErr != nil {
		return nil, contextErr
	}
	if sharedFormat != f {
		return nil, fmt.Errorf("%w: open %d Hz x%d, requested %d Hz x%d", ErrFormatMismatch,
			sharedFormat.SampleRate, sharedFormat.Channels, f.SampleRate, f.Channels)
	}
	return sharedContext, nil
}

// OtoPlayer plays audio on the system device.
type OtoPlayer struct {
	format Format
	mu     sync.Mutex // One playback at a time
	closed atomic.Bool
}

// NewOtoPlayer opens the audio device for format.
func NewOtoPlayer(format Format) (*OtoPlayer, error) {
	if format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", format.SampleRate)
	}
	if format.Channels != 1 && format.Channels != 2 {
		return nil, fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", format.Channels)
	}
	if _, err := deviceContext(format); err != nil {
		return nil, err
	}
	return &OtoPlayer{format: format}, nil
}

// Play plays pcm to completion.
func (p *OtoPlayer) Play(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return ErrEmptyAudio
	}
	if p.closed.Load() {
		return ErrPlayerClosed
	}

	otoCtx, err := deviceContext(p.format)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// The reader keeps pcm alive until the player is closed.
	player := otoCtx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close marks the player closed. The shared device stays open.
func (p *OtoPlayer) Close() error {
	p.closed.Store(true)
	return nil
}

// Discard is a Player that returns as soon as the audio would have ended,
// without touching any device. Its clock can be replaced in tests.
type Discard struct {
	Format Format
	Wait   func(ctx context.Context, d time.Duration) error

	plays atomic.Int64
}

// Play waits for the duration of pcm.
func (d *Discard) Play(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return ErrEmptyAudio
	}
	d.plays.Add(1)

	dur := pcmDuration(len(pcm), d.Format)
	if d.Wait != nil {
		return d.Wait(ctx, dur)
	}

	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close is a no-op.
func (d *Discard) Close() error { return nil }

// Plays returns the number of Play calls.
func (d *Discard) Plays() int {
	return int(d.plays.Load())
}

func pcmDuration(size int, f Format) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := size / (2 * f.Channels)
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}
