// Package mock provides a deterministic speech engine for tests and dry
// runs.
package mock

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/nashdub/dubsync/dub"
)

// SampleRate of rendered mock audio.
const SampleRate = 22050

// Engine implements dub.Synthesizer and dub.Renderer without producing
// sound. Durations follow a words per minute rate divided by the
// utterance speed, with seeded jitter. Events carry synthetic timestamps
// so callers timing them never wait, unless latency simulation is on.
type Engine struct {
	mu sync.Mutex

	// Configuration
	config dub.MockConfig
	rng    *rand.Rand
	clock  func() time.Time

	// Control for testing
	failureError error
	errorEvents  bool
	failOn       map[string]error

	// State
	closed    bool
	callCount int
}

// New creates a mock engine. Zero config values fall back to the defaults.
func New(config dub.MockConfig) *Engine {
	defaults := dub.DefaultMockConfig()
	if config.WordsPerMinute <= 0 {
		config.WordsPerMinute = defaults.WordsPerMinute
	}
	return &Engine{
		config: config,
		rng:    rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
		clock:  time.Now,
		failOn: make(map[string]error),
	}
}

// Speak simulates one utterance.
func (e *Engine) Speak(ctx context.Context, u dub.Utterance) (<-chan dub.Event, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, dub.ErrEngineClosed
	}
	e.callCount++
	if e.failureError != nil {
		err := e.failureError
		e.mu.Unlock()
		return nil, err
	}
	eventErr := e.eventError(u.Text)
	d := e.duration(u.Text, u.Speed)
	start := e.clock()
	latency := e.config.SimulateLatency
	e.mu.Unlock()

	ch := make(chan dub.Event, 2)
	ch <- dub.Event{Token: u.Token, Type: dub.EventStart, At: start}

	final := dub.Event{Token: u.Token, Type: dub.EventDone, At: start.Add(d)}
	if eventErr != nil {
		final = dub.Event{Token: u.Token, Type: dub.EventError, At: start, Err: eventErr}
	}

	if !latency {
		ch <- final
		close(ch)
		return ch, nil
	}

	go func() {
		defer close(ch)
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			ch <- dub.Event{Token: u.Token, Type: dub.EventError, At: time.Now(), Err: ctx.Err()}
		case <-timer.C:
			ch <- final
		}
	}()
	return ch, nil
}

// Render returns silent PCM of the simulated duration.
func (e *Engine) Render(ctx context.Context, u dub.Utterance) (*dub.Audio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, dub.ErrEngineClosed
	}
	e.callCount++
	if e.failureError != nil {
		return nil, e.failureError
	}
	if err := e.eventError(u.Text); err != nil {
		return nil, fmt.Errorf("%w: %w", dub.ErrRenderingFailed, err)
	}

	d := e.duration(u.Text, u.Speed)
	samples := int(d.Seconds() * SampleRate)
	return &dub.Audio{
		Data:       make([]byte, samples*2), // 16-bit audio
		SampleRate: SampleRate,
		Channels:   1,
		Duration:   dub.PCMDuration(samples*2, SampleRate, 1),
	}, nil
}

// Voices returns the mock voices.
func (e *Engine) Voices() []dub.Voice {
	return []dub.Voice{
		{ID: "mock-ar-1", Name: "Mock Arabic 1", Language: "ar", Gender: "male"},
		{ID: "mock-ar-2", Name: "Mock Arabic 2", Language: "ar", Gender: "female"},
		{ID: "mock-en-1", Name: "Mock English", Language: "en-US", Gender: "neutral"},
	}
}

// Capabilities returns the mock engine's capabilities.
func (e *Engine) Capabilities() dub.Capabilities {
	return dub.Capabilities{
		Engine:        "mock",
		Languages:     []string{"ar", "en-US"},
		SupportsPitch: true,
		SupportsSpeed: true,
		MaxTextLength: 10000,
	}
}

// Close marks the engine closed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Duration returns the jitter-free simulated duration of text at speed.
func (e *Engine) Duration(text string, speed float64) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	if speed <= 0 {
		speed = dub.DefaultSpeed
	}
	seconds := float64(words) * 60.0 / float64(e.config.WordsPerMinute) / speed
	return time.Duration(seconds * float64(time.Second))
}

// Test control methods

// SetFailure makes Speak and Render return err.
func (e *Engine) SetFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureError = err
}

// ClearFailure resets every injected failure.
func (e *Engine) ClearFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureError = nil
	e.errorEvents = false
	e.failOn = make(map[string]error)
	e.config.FailureRate = 0
}

// SetErrorEvents makes every utterance end with an error event.
func (e *Engine) SetErrorEvents(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errorEvents = enabled
}

// FailOn makes utterances of exactly text end with err.
func (e *Engine) FailOn(text string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failOn[text] = err
}

// SetFailureRate makes a seeded fraction of utterances fail.
func (e *Engine) SetFailureRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.FailureRate = rate
}

// SetJitter sets the relative duration jitter.
func (e *Engine) SetJitter(jitter float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.Jitter = jitter
}

// SetClock replaces the timestamp source.
func (e *Engine) SetClock(clock func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = clock
}

// CallCount returns the number of Speak and Render calls.
func (e *Engine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callCount
}

// eventError decides whether an utterance fails. Callers hold e.mu.
func (e *Engine) eventError(text string) error {
	if err, ok := e.failOn[text]; ok {
		if err == nil {
			err = dub.ErrSynthesisFailed
		}
		return err
	}
	if e.errorEvents {
		return dub.ErrSynthesisFailed
	}
	if e.config.FailureRate > 0 && e.rng.Float64() < e.config.FailureRate {
		return fmt.Errorf("%w: simulated failure", dub.ErrSynthesisFailed)
	}
	return nil
}

// duration applies jitter to Duration. Callers hold e.mu.
func (e *Engine) duration(text string, speed float64) time.Duration {
	d := e.Duration(text, speed)
	if e.config.Jitter > 0 {
		factor := 1 + (e.rng.Float64()*2-1)*e.config.Jitter
		d = time.Duration(float64(d) * factor)
	}
	return d
}
