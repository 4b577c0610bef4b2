package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nashdub/dubsync/dub"
	dubsync "github.com/nashdub/dubsync/dub/sync"
)

func testLines() []dub.Line {
	return []dub.Line{
		dub.NewLine("one two three", 0, 3*time.Second),
		dub.NewLine("four five", 3*time.Second, 5*time.Second),
	}
}

func update(t *testing.T, m SyncModel, msg tea.Msg) (SyncModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	sm, ok := next.(SyncModel)
	if !ok {
		t.Fatalf("Expected SyncModel, got %T", next)
	}
	return sm, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

// TestSyncModelProgress tests progress and state messages.
func TestSyncModelProgress(t *testing.T) {
	lines := testLines()
	m := NewSyncModel(lines, nil)

	m, _ = update(t, m, ProgressMsg{Done: 1, Total: 2})
	if m.Status().Done != 1 || m.Status().Progress() != 0.5 {
		t.Errorf("Expected half done, got %+v", m.Status())
	}

	send := func(msg tea.Msg) { m, _ = update(t, m, msg) }
	m.observe(send)(lines[1].ID, dub.StateMeasuring, dub.StateMeasureFailed)

	if m.Status().Line != "four five" {
		t.Errorf("Expected current line text, got %q", m.Status().Line)
	}
	if m.Status().Failed != 1 {
		t.Errorf("Expected 1 failure, got %d", m.Status().Failed)
	}
	if !strings.Contains(m.View(), "1/2") {
		t.Errorf("View should show the counter:\n%s", m.View())
	}
}

// TestSyncModelCancel tests that quitting cancels the work.
func TestSyncModelCancel(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	} {
		called := false
		m := NewSyncModel(testLines(), func() { called = true })

		m, cmd := update(t, m, key)
		if !called {
			t.Errorf("%s: expected cancel to be called", key)
		}
		if !m.Canceled() {
			t.Errorf("%s: expected model to be canceled", key)
		}
		if !isQuit(cmd) {
			t.Errorf("%s: expected quit command", key)
		}
	}
}

// TestSyncModelOtherKeys tests that unbound keys are ignored.
func TestSyncModelOtherKeys(t *testing.T) {
	m := NewSyncModel(testLines(), func() { t.Error("cancel should not be called") })
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if cmd != nil || m.Canceled() {
		t.Error("Unbound key should do nothing")
	}
}

// TestSyncModelFinished tests the final view.
func TestSyncModelFinished(t *testing.T) {
	m := NewSyncModel(testLines(), nil)

	done, cmd := update(t, m, FinishedMsg{})
	if !isQuit(cmd) {
		t.Error("Expected quit command when finished")
	}
	if done.View() != "" {
		t.Errorf("Expected empty view after success, got %q", done.View())
	}

	failed, _ := update(t, m, FinishedMsg{Err: errors.New("engine gone")})
	if !strings.Contains(failed.View(), "engine gone") {
		t.Errorf("Expected error in view, got %q", failed.View())
	}
}

// TestSyncModelResize tests bar width limits.
func TestSyncModelResize(t *testing.T) {
	m := NewSyncModel(testLines(), nil)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 40})
	if m.bar.Width != maxBarWidth {
		t.Errorf("Expected bar width %d, got %d", maxBarWidth, m.bar.Width)
	}

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 30, Height: 40})
	if m.bar.Width != 26 {
		t.Errorf("Expected bar width 26, got %d", m.bar.Width)
	}
}

// TestRunSyncWorkError tests that RunSync returns the work error.
func TestRunSyncWorkError(t *testing.T) {
	want := errors.New("boom")
	var out strings.Builder

	work := func(ctx context.Context, progress dubsync.Progress, observe dubsync.StateObserver) error {
		progress(1, 2)
		return want
	}
	err := RunSync(context.Background(), &out, testLines(), work, tea.WithInput(nil), tea.WithoutRenderer())
	if !errors.Is(err, want) {
		t.Errorf("Expected work error, got %v", err)
	}
}
