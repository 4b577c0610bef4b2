package dub

import (
	"context"
	"time"
)

// Synthesizer is a speech engine that can be timed.
//
// Speak starts one utterance and returns its event stream. The stream
// yields an EventStart followed by exactly one EventDone or EventError,
// every event carrying the utterance token, and is then closed. An engine
// holds a single active utterance; callers sharing an engine serialize
// their calls.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) (<-chan Event, error)

	// Voices lists the voices the engine offers.
	Voices() []Voice

	// Capabilities describes the engine from its own public metadata.
	Capabilities() Capabilities

	// Close releases engine resources.
	Close() error
}

// Renderer produces the audio for an utterance without playing it.
type Renderer interface {
	Render(ctx context.Context, u Utterance) (*Audio, error)
}

// Utterance is one request to a speech engine.
type Utterance struct {
	Token string  // Caller supplied request token
	Text  string  // Text to speak
	Voice string  // Voice identifier, empty for the engine default
	Speed float64 // Speed multiplier (1.0 = normal)
	Pitch float64 // Pitch multiplier (1.0 = normal)
}

// EventType identifies a synthesis lifecycle event.
type EventType int

const (
	// EventStart marks the start of audible synthesis.
	EventStart EventType = iota
	// EventDone marks successful completion.
	EventDone
	// EventError marks a failed utterance.
	EventError
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is emitted by a synthesizer for an utterance.
type Event struct {
	Token string
	Type  EventType
	At    time.Time
	Err   error
}

// Terminal reports whether the event ends an utterance.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// Voice represents a voice offered by an engine.
type Voice struct {
	ID       string
	Name     string
	Language string
	Gender   string
}

// Capabilities describes what an engine supports. Engine is display
// information only.
type Capabilities struct {
	Engine          string
	Languages       []string
	SupportsPitch   bool
	SupportsSpeed   bool
	RequiresNetwork bool
	MaxTextLength   int
}

// Audio contains rendered PCM audio.
type Audio struct {
	Data       []byte        // Signed 16-bit little-endian PCM
	SampleRate int           // Samples per second
	Channels   int           // Channel count
	Duration   time.Duration // Length of the audio
}

// PCMDuration returns the playback duration of a signed 16-bit PCM buffer.
func PCMDuration(size, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	frames := size / (2 * channels)
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
