package dub

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Playback bounds applied to every line.
const (
	MinSpeed     = 0.5
	MaxSpeed     = 2.5
	MinPitch     = 0.5
	MaxPitch     = 2.0
	DefaultSpeed = 1.0
	DefaultPitch = 1.0
)

// Line is one unit of dialogue with its own timing window, voice and
// playback settings.
//
// Lines are values. Every helper that changes a line returns a modified
// copy so a published collection is never partially updated.
type Line struct {
	ID             string        `validate:"required"`
	Text           string        `validate:"required"`
	Start          time.Duration `validate:"gte=0"`
	End            time.Duration `validate:"gtfield=Start"`
	Voice          string
	Speed          float64 `validate:"gte=0.5,lte=2.5"`
	Pitch          float64 `validate:"gte=0.5,lte=2"`
	Playing        bool
	ActualDuration time.Duration `validate:"gte=0"`

	needsSync bool
}

// NewLine creates a line with a fresh identifier and neutral playback
// settings.
func NewLine(text string, start, end time.Duration) Line {
	return Line{
		ID:    NewLineID(),
		Text:  text,
		Start: start,
		End:   end,
		Speed: DefaultSpeed,
		Pitch: DefaultPitch,
	}
}

// NewLineID returns a random line identifier.
func NewLineID() string {
	return uuid.NewString()
}

// TargetDuration returns the window the speech has to fit into.
func (l Line) TargetDuration() time.Duration {
	return l.End - l.Start
}

// NeedsSync reports whether the last known actual duration overshoots the
// target or a quality classification judged the line misaligned.
func (l Line) NeedsSync() bool {
	return l.needsSync
}

// WithActualDuration records a measured or estimated duration and
// recomputes the sync flag from it.
func (l Line) WithActualDuration(d time.Duration) Line {
	l.ActualDuration = d
	l.needsSync = d > l.TargetDuration()
	return l
}

// WithSync applies the result of a sync pass.
func (l Line) WithSync(speed float64, actual time.Duration, needsSync bool) Line {
	l.Speed = ClampSpeed(speed)
	l.ActualDuration = actual
	l.needsSync = needsSync
	return l
}

// WithSpeed returns the line with a clamped playback speed.
func (l Line) WithSpeed(speed float64) Line {
	l.Speed = ClampSpeed(speed)
	return l
}

// Synced returns the line with the given speed and the sync flag cleared.
func (l Line) Synced(speed float64) Line {
	l.Speed = ClampSpeed(speed)
	l.needsSync = false
	return l
}

// RequiredSpeed returns the speed at which the actual duration would fill
// the target window exactly, bounded to the global speed range.
func (l Line) RequiredSpeed() float64 {
	target := l.TargetDuration()
	if target <= 0 || l.ActualDuration <= 0 {
		return l.Speed
	}
	return ClampSpeed(float64(l.ActualDuration) / float64(target) * l.Speed)
}

// Validate checks that the line can be synchronized and exported.
func (l Line) Validate() error {
	if strings.TrimSpace(l.Text) == "" {
		return fmt.Errorf("line %s: %w", l.ID, ErrEmptyText)
	}
	if err := validate().Struct(l); err != nil {
		return fmt.Errorf("line %s: %w: %w", l.ID, ErrInvalidLine, err)
	}
	return nil
}

// ClampSpeed bounds a speed multiplier to the supported range. NaN maps to
// the default speed.
func ClampSpeed(speed float64) float64 {
	if math.IsNaN(speed) {
		return DefaultSpeed
	}
	return math.Max(MinSpeed, math.Min(MaxSpeed, speed))
}

// ClampPitch bounds a pitch multiplier to the supported range.
func ClampPitch(pitch float64) float64 {
	if math.IsNaN(pitch) {
		return DefaultPitch
	}
	return math.Max(MinPitch, math.Min(MaxPitch, pitch))
}

// Clone returns a shallow copy of a line collection.
func Clone(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

func validate() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New(validator.WithRequiredStructEnabled())
	})
	return validatorInst
}
