// Package project holds the editable line collection of a dubbing session.
//
// The collection is published as immutable snapshots: every edit builds a
// new slice and swaps it in, so readers never observe a partial update.
package project

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/dub/measure"
	"github.com/nashdub/dubsync/internal/id"
)

// maxUndo bounds the removal history.
const maxUndo = 50

// Listener is called with every new snapshot.
type Listener func(lines []dub.Line)

type removal struct {
	index int
	line  dub.Line
}

// Session is a named line collection. It is safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	name      string
	lines     []dub.Line
	removed   []removal
	listeners []Listener

	tracker *measure.Tracker
	logger  *log.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithTracker sets the playback tracker used by previews.
func WithTracker(t *measure.Tracker) Option {
	return func(s *Session) { s.tracker = t }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New creates an empty session.
func New(name string, opts ...Option) *Session {
	s := &Session{
		name:    name,
		tracker: measure.NewTracker(),
		logger:  log.Default().WithPrefix("project"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the session name.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Lines returns the current snapshot.
func (s *Session) Lines() []dub.Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return dub.Clone(s.lines)
}

// Len returns the number of lines.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

// Get returns the line with the given id.
func (s *Session) Get(lineID string) (dub.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(lineID)
	if i < 0 {
		return dub.Line{}, fmt.Errorf("%w: %s", dub.ErrLineNotFound, lineID)
	}
	return s.lines[i], nil
}

// Subscribe registers fn for snapshot updates.
func (s *Session) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Replace swaps in a whole collection, e.g. the result of a sync pass.
// Every line must be valid.
func (s *Session) Replace(lines []dub.Line) error {
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	s.publish(func([]dub.Line) ([]dub.Line, bool) { return slices.Clone(lines), true })
	s.logger.Debug("Replaced lines", "count", len(lines))
	return nil
}

// Add appends a valid line.
func (s *Session) Add(line dub.Line) error {
	return s.Insert(-1, line)
}

// Insert places a valid line at index. A negative index appends.
func (s *Session) Insert(index int, line dub.Line) error {
	if err := line.Validate(); err != nil {
		return err
	}

	var err error
	s.publish(func(cur []dub.Line) ([]dub.Line, bool) {
		if index < 0 {
			index = len(cur)
		}
		if index > len(cur) {
			err = fmt.Errorf("%w: index %d out of range", dub.ErrInvalidLine, index)
			return nil, false
		}
		return slices.Insert(dub.Clone(cur), index, line), true
	})
	if err == nil {
		s.logger.Debug("Inserted line", "line", line.ID, "index", index)
	}
	return err
}

// Remove deletes a line. The removal can be undone.
func (s *Session) Remove(lineID string) error {
	var err error
	s.publish(func(cur []dub.Line) ([]dub.Line, bool) {
		i := indexOf(cur, lineID)
		if i < 0 {
			err = fmt.Errorf("%w: %s", dub.ErrLineNotFound, lineID)
			return nil, false
		}
		s.removed = append(s.removed, removal{index: i, line: cur[i]})
		if len(s.removed) > maxUndo {
			s.removed = s.removed[1:]
		}
		return slices.Delete(dub.Clone(cur), i, i+1), true
	})
	if err == nil {
		s.logger.Debug("Removed line", "line", lineID)
	}
	return err
}

// Undo restores the most recently removed line at its old position.
func (s *Session) Undo() error {
	var err error
	s.publish(func(cur []dub.Line) ([]dub.Line, bool) {
		if len(s.removed) == 0 {
			err = dub.ErrNothingToUndo
			return nil, false
		}
		last := s.removed[len(s.removed)-1]
		s.removed = s.removed[:len(s.removed)-1]
		return slices.Insert(dub.Clone(cur), min(last.index, len(cur)), last.line), true
	})
	return err
}

// Update replaces one line with fn's result. The result must be valid and
// keep its id.
func (s *Session) Update(lineID string, fn func(dub.Line) dub.Line) error {
	var err error
	s.publish(func(cur []dub.Line) ([]dub.Line, bool) {
		i := indexOf(cur, lineID)
		if i < 0 {
			err = fmt.Errorf("%w: %s", dub.ErrLineNotFound, lineID)
			return nil, false
		}
		updated := fn(cur[i])
		updated.ID = lineID
		if err = updated.Validate(); err != nil {
			return nil, false
		}
		next := dub.Clone(cur)
		next[i] = updated
		return next, true
	})
	return err
}

// SetText changes the text of a line.
func (s *Session) SetText(lineID, text string) error {
	return s.Update(lineID, func(l dub.Line) dub.Line {
		l.Text = text
		return l
	})
}

// SetVoice changes the voice of a line.
func (s *Session) SetVoice(lineID, voice string) error {
	return s.Update(lineID, func(l dub.Line) dub.Line {
		l.Voice = voice
		return l
	})
}

// SetSpeed changes the speed of a line, clamped to the supported range.
func (s *Session) SetSpeed(lineID string, speed float64) error {
	return s.Update(lineID, func(l dub.Line) dub.Line { return l.WithSpeed(speed) })
}

// SetPitch changes the pitch of a line, clamped to the supported range.
func (s *Session) SetPitch(lineID string, pitch float64) error {
	return s.Update(lineID, func(l dub.Line) dub.Line {
		l.Pitch = dub.ClampPitch(pitch)
		return l
	})
}

// SetTiming changes the window of a line.
func (s *Session) SetTiming(lineID string, start, end time.Duration) error {
	return s.Update(lineID, func(l dub.Line) dub.Line {
		l.Start, l.End = start, end
		return l.WithActualDuration(l.ActualDuration)
	})
}

// RecordActual stores a measured duration and recomputes the sync flag.
func (s *Session) RecordActual(lineID string, d time.Duration) error {
	return s.Update(lineID, func(l dub.Line) dub.Line { return l.WithActualDuration(d) })
}

// ApplyAutoSync sets the speed of a line and clears its sync flag.
func (s *Session) ApplyAutoSync(lineID string, speed float64) error {
	err := s.Update(lineID, func(l dub.Line) dub.Line { return l.Synced(speed) })
	if err == nil {
		s.logger.Debug("Applied auto sync", "line", lineID, "speed", fmt.Sprintf("%.2f", speed))
	}
	return err
}

// SetPlaying sets the playing flag of a line.
func (s *Session) SetPlaying(lineID string, playing bool) error {
	return s.Update(lineID, func(l dub.Line) dub.Line {
		l.Playing = playing
		return l
	})
}

// ResetPlaying clears every playing flag.
func (s *Session) ResetPlaying() {
	s.publish(func(cur []dub.Line) ([]dub.Line, bool) {
		next := dub.Clone(cur)
		for i := range next {
			next[i].Playing = false
		}
		return next, true
	})
}

// Preview speaks a line with its own settings and records how long the
// playback took. The line is flagged as playing meanwhile.
func (s *Session) Preview(ctx context.Context, synth dub.Synthesizer, lineID string) (time.Duration, error) {
	if synth == nil {
		return 0, dub.ErrNoSynthesizer
	}
	line, err := s.Get(lineID)
	if err != nil {
		return 0, err
	}

	events, err := synth.Speak(ctx, dub.Utterance{
		Token: id.MustGenerate(id.PrefixPreview),
		Text:  line.Text,
		Voice: line.Voice,
		Speed: line.Speed,
		Pitch: line.Pitch,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", dub.ErrSynthesisFailed, err)
	}

	if err := s.SetPlaying(lineID, true); err != nil {
		return 0, err
	}
	defer func() { _ = s.SetPlaying(lineID, false) }()

	if err := s.waitPreview(ctx, lineID, events); err != nil {
		if s.tracker.Tracking(lineID) {
			_, _ = s.tracker.Stop(lineID)
		}
		return 0, err
	}

	d, err := s.tracker.Stop(lineID)
	if err != nil {
		return 0, err
	}
	if err := s.RecordActual(lineID, d); err != nil {
		return 0, err
	}
	s.logger.Debug("Preview finished", "line", lineID, "duration", d)
	return d, nil
}

func (s *Session) waitPreview(ctx context.Context, lineID string, events <-chan dub.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("%w: event stream closed before completion", dub.ErrSynthesisFailed)
			}
			switch ev.Type {
			case dub.EventStart:
				s.tracker.Start(lineID)
			case dub.EventDone:
				if !s.tracker.Tracking(lineID) {
					return fmt.Errorf("%w: done event without start", dub.ErrSynthesisFailed)
				}
				return nil
			case dub.EventError:
				if ev.Err != nil {
					return fmt.Errorf("%w: %w", dub.ErrSynthesisFailed, ev.Err)
				}
				return dub.ErrSynthesisFailed
			}
		}
	}
}

// publish applies edit to the current snapshot under the write lock. The
// snapshot is only replaced when edit reports a change. Listeners run after
// the lock is released.
func (s *Session) publish(edit func(cur []dub.Line) ([]dub.Line, bool)) {
	s.mu.Lock()
	next, changed := edit(s.lines)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.lines = next
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(dub.Clone(next))
	}
}

func (s *Session) indexOf(lineID string) int {
	return indexOf(s.lines, lineID)
}

func indexOf(lines []dub.Line, lineID string) int {
	return slices.IndexFunc(lines, func(l dub.Line) bool { return l.ID == lineID })
}
