package project

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/dub/engines/mock"
	"github.com/nashdub/dubsync/dub/measure"
)

func newSession(opts ...Option) *Session {
	return New("episode-1", append([]Option{WithLogger(log.New(io.Discard))}, opts...)...)
}

func seeded(t *testing.T) (*Session, []dub.Line) {
	t.Helper()
	s := newSession()
	lines := []dub.Line{
		dub.NewLine("first", 0, 2*time.Second),
		dub.NewLine("second", 2*time.Second, 4*time.Second),
		dub.NewLine("third", 4*time.Second, 6*time.Second),
	}
	require.NoError(t, s.Replace(lines))
	return s, lines
}

func texts(lines []dub.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

// TestAddValidates tests that invalid lines never enter a session.
func TestAddValidates(t *testing.T) {
	s := newSession()

	assert.ErrorIs(t, s.Add(dub.NewLine("  ", 0, time.Second)), dub.ErrEmptyText)
	assert.ErrorIs(t, s.Add(dub.NewLine("text", 2*time.Second, time.Second)), dub.ErrInvalidLine)
	assert.Zero(t, s.Len())

	require.NoError(t, s.Add(dub.NewLine("text", 0, time.Second)))
	assert.Equal(t, 1, s.Len())
}

// TestInsertAndRemove tests positional edits with undo.
func TestInsertAndRemove(t *testing.T) {
	s, lines := seeded(t)

	require.NoError(t, s.Insert(1, dub.NewLine("inserted", time.Second, 2*time.Second)))
	assert.Equal(t, []string{"first", "inserted", "second", "third"}, texts(s.Lines()))
	assert.ErrorIs(t, s.Insert(9, dub.NewLine("x", 0, time.Second)), dub.ErrInvalidLine)

	require.NoError(t, s.Remove(lines[1].ID))
	require.NoError(t, s.Remove(lines[0].ID))
	assert.Equal(t, []string{"inserted", "third"}, texts(s.Lines()))
	assert.ErrorIs(t, s.Remove("missing"), dub.ErrLineNotFound)

	require.NoError(t, s.Undo())
	assert.Equal(t, []string{"first", "inserted", "third"}, texts(s.Lines()))
	require.NoError(t, s.Undo())
	assert.Equal(t, []string{"first", "inserted", "second", "third"}, texts(s.Lines()))
	assert.ErrorIs(t, s.Undo(), dub.ErrNothingToUndo)
}

// TestSnapshotsAreIsolated tests that callers cannot modify the session
// through a snapshot.
func TestSnapshotsAreIsolated(t *testing.T) {
	s, lines := seeded(t)

	snap := s.Lines()
	snap[0].Text = "changed"
	lines[1].Text = "changed too"

	got := s.Lines()
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
}

// TestUpdates tests the field setters.
func TestUpdates(t *testing.T) {
	s, lines := seeded(t)
	id := lines[0].ID

	require.NoError(t, s.SetText(id, "new text"))
	require.NoError(t, s.SetVoice(id, "mock-ar-2"))
	require.NoError(t, s.SetSpeed(id, 9))
	require.NoError(t, s.SetPitch(id, 0.1))

	l, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "new text", l.Text)
	assert.Equal(t, "mock-ar-2", l.Voice)
	assert.Equal(t, dub.MaxSpeed, l.Speed)
	assert.Equal(t, dub.MinPitch, l.Pitch)

	assert.ErrorIs(t, s.SetText(id, ""), dub.ErrEmptyText)
	assert.ErrorIs(t, s.SetTiming(id, 3*time.Second, time.Second), dub.ErrInvalidLine)
	assert.ErrorIs(t, s.SetVoice("missing", "v"), dub.ErrLineNotFound)

	l, _ = s.Get(id)
	assert.Equal(t, "new text", l.Text, "failed edits leave the line alone")
}

// TestRecordActual tests the sync flag recomputation.
func TestRecordActual(t *testing.T) {
	s, lines := seeded(t)
	id := lines[0].ID

	require.NoError(t, s.RecordActual(id, 3*time.Second))
	l, _ := s.Get(id)
	assert.True(t, l.NeedsSync())
	assert.InDelta(t, 1.5, l.RequiredSpeed(), 1e-9)

	require.NoError(t, s.SetTiming(id, 0, 4*time.Second))
	l, _ = s.Get(id)
	assert.False(t, l.NeedsSync())

	require.NoError(t, s.SetTiming(id, 0, 2*time.Second))
	require.NoError(t, s.ApplyAutoSync(id, 1.5))
	l, _ = s.Get(id)
	assert.False(t, l.NeedsSync())
	assert.Equal(t, 1.5, l.Speed)
}

// TestPlayingFlags tests playing state management.
func TestPlayingFlags(t *testing.T) {
	s, lines := seeded(t)

	require.NoError(t, s.SetPlaying(lines[0].ID, true))
	require.NoError(t, s.SetPlaying(lines[2].ID, true))
	l, _ := s.Get(lines[2].ID)
	assert.True(t, l.Playing)

	s.ResetPlaying()
	for _, l := range s.Lines() {
		assert.False(t, l.Playing)
	}
}

// TestSubscribe tests snapshot notifications.
func TestSubscribe(t *testing.T) {
	s, lines := seeded(t)

	var mu sync.Mutex
	var sizes []int
	s.Subscribe(func(lines []dub.Line) {
		mu.Lock()
		defer mu.Unlock()
		sizes = append(sizes, len(lines))
	})

	require.NoError(t, s.Remove(lines[0].ID))
	assert.Error(t, s.Remove(lines[0].ID))
	require.NoError(t, s.Add(dub.NewLine("x", 0, time.Second)))

	assert.Equal(t, []int{2, 3}, sizes)
}

// TestConcurrentEdits tests that concurrent writers do not lose updates.
func TestConcurrentEdits(t *testing.T) {
	s := newSession()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Add(dub.NewLine("line", 0, time.Second))
			_ = s.Lines()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, s.Len())
}

// TestPreview tests playback timing through the tracker.
func TestPreview(t *testing.T) {
	now := time.Unix(0, 0)
	s, lines := seeded(t)
	s.tracker = measure.NewTrackerWithClock(func() time.Time {
		now = now.Add(1500 * time.Millisecond)
		return now
	})
	engine := mock.New(dub.MockConfig{WordsPerMinute: 60})

	d, err := s.Preview(context.Background(), engine, lines[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	l, _ := s.Get(lines[0].ID)
	assert.Equal(t, d, l.ActualDuration)
	assert.False(t, l.Playing)
	assert.False(t, s.tracker.Tracking(lines[0].ID))
}

// TestPreviewFailure tests that failed previews leave no state behind.
func TestPreviewFailure(t *testing.T) {
	s, lines := seeded(t)
	engine := mock.New(dub.MockConfig{WordsPerMinute: 60})
	engine.SetErrorEvents(true)

	_, err := s.Preview(context.Background(), engine, lines[0].ID)
	assert.ErrorIs(t, err, dub.ErrSynthesisFailed)

	l, _ := s.Get(lines[0].ID)
	assert.Zero(t, l.ActualDuration)
	assert.False(t, l.Playing)

	_, err = s.Preview(context.Background(), nil, lines[0].ID)
	assert.ErrorIs(t, err, dub.ErrNoSynthesizer)
	_, err = s.Preview(context.Background(), engine, "missing")
	assert.ErrorIs(t, err, dub.ErrLineNotFound)
}

// TestSaveLoad tests the YAML project file.
func TestSaveLoad(t *testing.T) {
	s, lines := seeded(t)
	require.NoError(t, s.RecordActual(lines[1].ID, 3*time.Second))
	require.NoError(t, s.SetVoice(lines[2].ID, "mock-en-1"))

	path := filepath.Join(t.TempDir(), "projects", "episode.yaml")
	require.NoError(t, s.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "needs_sync: true")
	assert.Contains(t, string(data), "end: 4s")

	loaded, err := Load(path, WithLogger(log.New(io.Discard)))
	require.NoError(t, err)
	assert.Equal(t, "episode-1", loaded.Name())
	assert.Equal(t, s.Lines(), loaded.Lines())
}

// TestLoadRejects tests invalid project files.
func TestLoadRejects(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	_, err := Load(write("future.yaml", "version: 99\nname: x\n"))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Load(write("noname.yaml", "version: 1\nlines: []\n"))
	assert.ErrorIs(t, err, dub.ErrInvalidLine)

	_, err = Load(write("badline.yaml", "version: 1\nname: x\nlines:\n  - id: a\n    text: hi\n    start: 2s\n    end: 1s\n    speed: 1\n    pitch: 1\n"))
	assert.ErrorIs(t, err, dub.ErrInvalidLine)

	_, err = Load(write("garbage.yaml", "{{{"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
