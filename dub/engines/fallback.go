package engines

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/nashdub/dubsync/dub"
)

// Fallback wraps a primary synthesizer with automatic fallback to a
// secondary one once maxFailures primary utterances in a row have failed to
// start or ended with an error event.
type Fallback struct {
	primary       dub.Synthesizer
	fallback      dub.Synthesizer
	failures      int
	maxFailures   int
	usingFallback bool
	mu            sync.Mutex
	logger        *log.Logger
}

// NewFallback creates a synthesizer with automatic fallback.
func NewFallback(primary, fallback dub.Synthesizer, maxFailures int) *Fallback {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &Fallback{
		primary:     primary,
		fallback:    fallback,
		maxFailures: maxFailures,
		logger:      log.Default().WithPrefix("engine"),
	}
}

// Speak starts the utterance on the active engine. Error events count as
// failures of the primary like start errors do; a done event resets the
// count.
func (f *Fallback) Speak(ctx context.Context, u dub.Utterance) (<-chan dub.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.usingFallback {
		return f.fallback.Speak(ctx, u)
	}

	events, err := f.primary.Speak(ctx, u)
	if err == nil {
		return f.watch(events), nil
	}

	if !f.failLocked(err) {
		return nil, err
	}

	events, err = f.fallback.Speak(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("both engines failed: %w", err)
	}
	return events, nil
}

// watch relays a primary stream, recording its outcome before the terminal
// event is delivered.
func (f *Fallback) watch(events <-chan dub.Event) <-chan dub.Event {
	out := make(chan dub.Event, 2)
	go func() {
		defer close(out)
		for ev := range events {
			switch ev.Type {
			case dub.EventDone:
				f.mu.Lock()
				if f.failures > 0 {
					f.logger.Info("Primary engine recovered", "failures", f.failures)
					f.failures = 0
				}
				f.mu.Unlock()
			case dub.EventError:
				f.mu.Lock()
				f.failLocked(ev.Err)
				f.mu.Unlock()
			}
			out <- ev
		}
	}()
	return out
}

// failLocked records a primary failure and reports whether the fallback is
// now active. f.mu must be held.
func (f *Fallback) failLocked(err error) bool {
	if f.usingFallback {
		return true
	}

	f.failures++
	f.logger.Warn("Primary engine failed", "attempt", f.failures, "max", f.maxFailures, "err", err)
	if f.failures < f.maxFailures {
		return false
	}

	f.logger.Warn("Switching to fallback engine",
		"primary", f.primary.Capabilities().Engine,
		"fallback", f.fallback.Capabilities().Engine)
	f.usingFallback = true
	return true
}

// Render renders on the active engine when it supports rendering.
func (f *Fallback) Render(ctx context.Context, u dub.Utterance) (*dub.Audio, error) {
	r, ok := f.active().(dub.Renderer)
	if !ok {
		return nil, dub.ErrEngineNotCapable
	}
	return r.Render(ctx, u)
}

// Voices returns voices from the active engine.
func (f *Fallback) Voices() []dub.Voice {
	return f.active().Voices()
}

// Capabilities returns the active engine's capabilities.
func (f *Fallback) Capabilities() dub.Capabilities {
	return f.active().Capabilities()
}

// Close closes both engines.
func (f *Fallback) Close() error {
	perr := f.primary.Close()
	ferr := f.fallback.Close()
	if perr != nil {
		return perr
	}
	return ferr
}

// UsingFallback reports whether the fallback engine is active.
func (f *Fallback) UsingFallback() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usingFallback
}

func (f *Fallback) active() dub.Synthesizer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usingFallback {
		return f.fallback
	}
	return f.primary
}
