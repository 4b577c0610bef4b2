package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDiscard_Play(t *testing.T) {
	var waited time.Duration
	d := &Discard{
		Format: Format{SampleRate: 22050, Channels: 1},
		Wait: func(_ context.Context, dur time.Duration) error {
			waited = dur
			return nil
		},
	}

	if err := d.Play(context.Background(), make([]byte, 22050*2)); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if waited != time.Second {
		t.Errorf("Expected 1s, got %s", waited)
	}
	if d.Plays() != 1 {
		t.Errorf("Expected 1 play, got %d", d.Plays())
	}
}

func TestDiscard_Empty(t *testing.T) {
	d := &Discard{Format: Format{SampleRate: 22050, Channels: 1}}
	if err := d.Play(context.Background(), nil); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("Expected ErrEmptyAudio, got %v", err)
	}
}

func TestDiscard_Canceled(t *testing.T) {
	d := &Discard{Format: Format{SampleRate: 8000, Channels: 1}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Ten seconds of audio returns at once.
	if err := d.Play(ctx, make([]byte, 8000*2*10)); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestPCMDuration(t *testing.T) {
	tests := []struct {
		size   int
		format Format
		want   time.Duration
	}{
		{44100 * 2, Format{44100, 1}, time.Second},
		{44100 * 4, Format{44100, 2}, time.Second},
		{11025, Format{22050, 1}, 249977324}, // odd byte dropped
		{100, Format{0, 1}, 0},
	}

	for _, tt := range tests {
		if got := pcmDuration(tt.size, tt.format); got != tt.want {
			t.Errorf("pcmDuration(%d, %+v) = %s, want %s", tt.size, tt.format, got, tt.want)
		}
	}
}

func TestNewOtoPlayer_InvalidFormat(t *testing.T) {
	if _, err := NewOtoPlayer(Format{SampleRate: 0, Channels: 1}); err == nil {
		t.Error("Expected error for zero sample rate")
	}
	if _, err := NewOtoPlayer(Format{SampleRate: 22050, Channels: 3}); err == nil {
		t.Error("Expected error for three channels")
	}
}
