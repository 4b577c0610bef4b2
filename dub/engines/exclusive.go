// Package engines provides speech engine implementations and wrappers.
package engines

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/internal/queue"
)

// Exclusive serializes every utterance of a synthesizer through a single
// task queue so only one is in flight at a time.
type Exclusive struct {
	inner dub.Synthesizer
	queue *queue.Queue
}

// NewExclusive wraps inner. maxPending bounds the waiting utterances, zero
// means unbounded.
func NewExclusive(inner dub.Synthesizer, maxPending int) *Exclusive {
	return &Exclusive{
		inner: inner,
		queue: queue.New(maxPending),
	}
}

// Speak queues an utterance. The returned stream starts once every earlier
// utterance has finished. An utterance dropped before it starts ends with an
// error event.
func (e *Exclusive) Speak(ctx context.Context, u dub.Utterance) (<-chan dub.Event, error) {
	out := make(chan dub.Event, 2)

	var started atomic.Bool
	result, err := e.queue.Submit(ctx, queue.PriorityNormal, func(ctx context.Context) error {
		started.Store(true)
		defer close(out)
		return forward(ctx, e.inner, u, out)
	})
	if err != nil {
		close(out)
		if errors.Is(err, queue.ErrQueueClosed) {
			return nil, dub.ErrEngineClosed
		}
		return nil, fmt.Errorf("%w: %w", dub.ErrEngineBusy, err)
	}

	// A task skipped by cancellation or shutdown never touches out.
	go func() {
		err := <-result
		if started.Load() {
			return
		}
		if errors.Is(err, queue.ErrQueueClosed) {
			err = dub.ErrEngineClosed
		}
		out <- dub.Event{Token: u.Token, Type: dub.EventError, At: time.Now(), Err: err}
		close(out)
	}()
	return out, nil
}

// forward relays one utterance and returns once it has ended.
func forward(ctx context.Context, synth dub.Synthesizer, u dub.Utterance, out chan<- dub.Event) error {
	events, err := synth.Speak(ctx, u)
	if err != nil {
		out <- dub.Event{Token: u.Token, Type: dub.EventError, Err: err}
		return err
	}

	for ev := range events {
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
		if ev.Terminal() {
			return ev.Err
		}
	}
	return nil
}

// Render queues a render behind pending utterances.
func (e *Exclusive) Render(ctx context.Context, u dub.Utterance) (*dub.Audio, error) {
	r, ok := e.inner.(dub.Renderer)
	if !ok {
		return nil, dub.ErrEngineNotCapable
	}

	var audio *dub.Audio
	err := e.queue.Do(ctx, func(ctx context.Context) error {
		var err error
		audio, err = r.Render(ctx, u)
		return err
	})
	if errors.Is(err, queue.ErrQueueClosed) {
		return nil, dub.ErrEngineClosed
	}
	return audio, err
}

// Voices returns the wrapped engine's voices.
func (e *Exclusive) Voices() []dub.Voice {
	return e.inner.Voices()
}

// Capabilities returns the wrapped engine's capabilities.
func (e *Exclusive) Capabilities() dub.Capabilities {
	return e.inner.Capabilities()
}

// Close drains the queue and closes the wrapped engine.
func (e *Exclusive) Close() error {
	if err := e.queue.Close(); err != nil {
		return err
	}
	return e.inner.Close()
}

// Pending returns the number of utterances waiting to start.
func (e *Exclusive) Pending() int {
	return e.queue.Size()
}
