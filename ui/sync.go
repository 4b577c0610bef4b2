package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nashdub/dubsync/dub"
	dubsync "github.com/nashdub/dubsync/dub/sync"
)

const maxBarWidth = 60

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(blue)
	helpStyle  = lipgloss.NewStyle().Foreground(gray)
	errStyle   = lipgloss.NewStyle().Foreground(red)
)

// SyncWork runs a sync pass, reporting through progress and observe.
type SyncWork func(ctx context.Context, progress dubsync.Progress, observe dubsync.StateObserver) error

// SyncModel is the progress view of a smart sync pass.
type SyncModel struct {
	status  SyncStatus
	texts   map[string]string
	bar     progress.Model
	spinner spinner.Model
	width   int
	cancel  context.CancelFunc

	canceled bool
	done     bool
	err      error
}

// NewSyncModel creates the view for lines. cancel is called when the
// user quits early.
func NewSyncModel(lines []dub.Line, cancel context.CancelFunc) SyncModel {
	texts := make(map[string]string, len(lines))
	for _, l := range lines {
		texts[l.ID] = l.Text
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(blue)

	return SyncModel{
		status:  SyncStatus{Total: len(lines)},
		texts:   texts,
		bar:     progress.New(progress.WithDefaultGradient()),
		spinner: s,
		cancel:  cancel,
	}
}

// Init starts the spinner.
func (m SyncModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages.
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.canceled = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-4, maxBarWidth)
		return m, nil

	case ProgressMsg:
		m.status.Done = msg.Done
		m.status.Total = msg.Total
		return m, nil

	case LineStateMsg:
		m.status.State = msg.To
		m.status.Line = msg.Text
		if msg.To == dub.StateMeasureFailed {
			m.status.Failed++
		}
		return m, nil

	case FinishedMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress view.
func (m SyncModel) View() string {
	var b strings.Builder

	if m.done {
		if m.err != nil {
			b.WriteString(errStyle.Render("Sync failed: "+m.err.Error()) + "\n")
		}
		return b.String()
	}

	b.WriteString(m.spinner.View() + " " + titleStyle.Render("Synchronizing") + "\n\n")
	b.WriteString("  " + m.bar.ViewAs(m.status.Progress()) + "\n")
	b.WriteString("  " + m.status.CompactStatus(m.width-2) + "\n\n")
	b.WriteString(helpStyle.Render("  q: cancel") + "\n")
	return b.String()
}

// Canceled reports whether the user quit before the pass finished.
func (m SyncModel) Canceled() bool {
	return m.canceled
}

// Status returns the current sync status.
func (m SyncModel) Status() SyncStatus {
	return m.status
}

// observe converts a state change to a message.
func (m SyncModel) observe(send func(tea.Msg)) dubsync.StateObserver {
	return func(lineID string, from, to dub.LineState) {
		send(LineStateMsg{LineID: lineID, Text: m.texts[lineID], From: from, To: to})
	}
}

// RunSync runs work in the background while showing its progress on out.
// Quitting the view cancels the work. The error of work is returned.
func RunSync(ctx context.Context, out io.Writer, lines []dub.Line, work SyncWork, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewSyncModel(lines, cancel)
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(out)}, opts...)...)

	errc := make(chan error, 1)
	go func() {
		err := work(ctx, func(done, total int) {
			p.Send(ProgressMsg{Done: done, Total: total})
		}, m.observe(p.Send))
		p.Send(FinishedMsg{Err: err})
		errc <- err
	}()

	final, runErr := p.Run()
	cancel()
	workErr := <-errc

	if fm, ok := final.(SyncModel); ok && fm.Canceled() {
		return fmt.Errorf("%w: sync canceled by user", dub.ErrCanceled)
	}
	if workErr != nil {
		return workErr
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("unable to run progress view: %w", runErr)
	}
	return nil
}
