package dub

import (
	"errors"
	"math"
	"testing"
	"time"
)

// TestNewLine tests line construction defaults.
func TestNewLine(t *testing.T) {
	l := NewLine("مرحبا بكم", time.Second, 4*time.Second)

	if l.ID == "" {
		t.Fatal("Expected a generated ID")
	}
	if l.Speed != DefaultSpeed || l.Pitch != DefaultPitch {
		t.Errorf("Expected neutral playback, got speed %.2f pitch %.2f", l.Speed, l.Pitch)
	}
	if l.TargetDuration() != 3*time.Second {
		t.Errorf("Expected target 3s, got %s", l.TargetDuration())
	}
	if l.NeedsSync() {
		t.Error("New line should not need sync")
	}

	other := NewLine("x", 0, time.Second)
	if other.ID == l.ID {
		t.Error("Line IDs should be unique")
	}
}

// TestWithActualDuration tests that the sync flag follows the duration.
func TestWithActualDuration(t *testing.T) {
	l := NewLine("hello there", 0, 2*time.Second)

	over := l.WithActualDuration(2500 * time.Millisecond)
	if !over.NeedsSync() {
		t.Error("Overshooting line should need sync")
	}
	if l.ActualDuration != 0 {
		t.Error("Original line must not be modified")
	}

	fits := over.WithActualDuration(1500 * time.Millisecond)
	if fits.NeedsSync() {
		t.Error("Line that fits should not need sync")
	}

	exact := l.WithActualDuration(2 * time.Second)
	if exact.NeedsSync() {
		t.Error("Line that matches exactly should not need sync")
	}
}

// TestWithSync tests applying a sync result.
func TestWithSync(t *testing.T) {
	l := NewLine("hello there", 0, 2*time.Second)

	synced := l.WithSync(3.0, time.Second, true)
	if synced.Speed != MaxSpeed {
		t.Errorf("Expected speed clamped to %.1f, got %.2f", MaxSpeed, synced.Speed)
	}
	if !synced.NeedsSync() {
		t.Error("Classification flag should be kept")
	}

	cleared := synced.Synced(1.3)
	if cleared.NeedsSync() || cleared.Speed != 1.3 {
		t.Errorf("Synced() should clear the flag, got speed %.2f flag %v", cleared.Speed, cleared.NeedsSync())
	}
}

// TestRequiredSpeed tests the required speed helper.
func TestRequiredSpeed(t *testing.T) {
	tests := []struct {
		name   string
		target time.Duration
		actual time.Duration
		speed  float64
		want   float64
	}{
		{"overshoot", 5 * time.Second, 7500 * time.Millisecond, 1.0, 1.5},
		{"undershoot", 4 * time.Second, 2 * time.Second, 1.0, 0.5},
		{"clamped high", time.Second, 10 * time.Second, 1.0, MaxSpeed},
		{"unmeasured", time.Second, 0, 1.2, 1.2},
		{"no window", 0, time.Second, 1.1, 1.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Line{ID: "a", Text: "x", End: tt.target, Speed: tt.speed, ActualDuration: tt.actual}
			if got := l.RequiredSpeed(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RequiredSpeed() = %.3f, want %.3f", got, tt.want)
			}
		})
	}
}

// TestLineValidate tests line validation.
func TestLineValidate(t *testing.T) {
	valid := NewLine("صباح الخير", 0, 2*time.Second)

	tests := []struct {
		name    string
		line    Line
		wantErr error
	}{
		{"valid", valid, nil},
		{"blank text", func() Line { l := valid; l.Text = "   "; return l }(), ErrEmptyText},
		{"missing id", func() Line { l := valid; l.ID = ""; return l }(), ErrInvalidLine},
		{"end before start", func() Line { l := valid; l.Start = 3 * time.Second; return l }(), ErrInvalidLine},
		{"speed out of range", func() Line { l := valid; l.Speed = 3; return l }(), ErrInvalidLine},
		{"pitch out of range", func() Line { l := valid; l.Pitch = 0.1; return l }(), ErrInvalidLine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.line.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Expected valid line, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestClampSpeed tests speed bounds.
func TestClampSpeed(t *testing.T) {
	if got := ClampSpeed(0.1); got != MinSpeed {
		t.Errorf("Expected %.1f, got %.2f", MinSpeed, got)
	}
	if got := ClampSpeed(math.Inf(1)); got != MaxSpeed {
		t.Errorf("Expected %.1f, got %.2f", MaxSpeed, got)
	}
	if got := ClampSpeed(math.NaN()); got != DefaultSpeed {
		t.Errorf("Expected default speed for NaN, got %.2f", got)
	}
	if got := ClampPitch(5); got != MaxPitch {
		t.Errorf("Expected %.1f, got %.2f", MaxPitch, got)
	}
}

// TestPCMDuration tests PCM duration calculation.
func TestPCMDuration(t *testing.T) {
	// One second of 22050 Hz mono 16-bit audio
	if got := PCMDuration(44100, 22050, 1); got != time.Second {
		t.Errorf("Expected 1s, got %s", got)
	}
	if got := PCMDuration(44100, 0, 1); got != 0 {
		t.Errorf("Expected 0 for invalid rate, got %s", got)
	}
}
