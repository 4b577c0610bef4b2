package measure

import (
	"sync"
	"time"

	"github.com/nashdub/dubsync/dub"
)

// Tracker times live playback by line id. It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	started map[string]time.Time
	now     func() time.Time
}

// NewTracker creates a Tracker using the wall clock.
func NewTracker() *Tracker {
	return NewTrackerWithClock(time.Now)
}

// NewTrackerWithClock creates a Tracker reading time from now.
func NewTrackerWithClock(now func() time.Time) *Tracker {
	return &Tracker{
		started: make(map[string]time.Time),
		now:     now,
	}
}

// Start begins timing a line. Starting an already tracked line restarts it.
func (t *Tracker) Start(lineID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started[lineID] = t.now()
}

// Stop ends timing of a line and returns the elapsed time.
func (t *Tracker) Stop(lineID string) (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start, ok := t.started[lineID]
	if !ok {
		return 0, dub.ErrTrackingMissing
	}
	delete(t.started, lineID)
	return t.now().Sub(start), nil
}

// Tracking reports whether a line is being timed.
func (t *Tracker) Tracking(lineID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.started[lineID]
	return ok
}
