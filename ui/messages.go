package ui

import (
	"github.com/nashdub/dubsync/dub"
)

// ProgressMsg reports a finished line of a sync pass.
type ProgressMsg struct {
	Done  int
	Total int
}

// LineStateMsg reports a line state change.
type LineStateMsg struct {
	LineID string
	Text   string
	From   dub.LineState
	To     dub.LineState
}

// FinishedMsg ends a sync pass.
type FinishedMsg struct {
	Err error
}
