package dub

import (
	"errors"
	"time"
)

// Common errors for the dubbing system.
var (
	// Engine errors
	ErrNoSynthesizer    = errors.New("no speech synthesizer available")
	ErrEngineClosed     = errors.New("speech engine has been closed")
	ErrEngineBusy       = errors.New("speech engine is busy")
	ErrSynthesisFailed  = errors.New("speech synthesis failed")
	ErrVoiceNotFound    = errors.New("requested voice not found")
	ErrTextTooLong      = errors.New("text exceeds engine limit")
	ErrRenderingFailed  = errors.New("audio rendering failed")
	ErrInvalidAudio     = errors.New("invalid audio format")
	ErrEngineNotCapable = errors.New("engine does not support the operation")

	// Line errors
	ErrEmptyText    = errors.New("line text is empty")
	ErrInvalidLine  = errors.New("invalid line")
	ErrLineNotFound = errors.New("line not found")

	// Measurement errors
	ErrNoSamples       = errors.New("no successful measurement trials")
	ErrTrackingMissing = errors.New("no tracking started for line")

	// Import errors
	ErrNoSubtitles   = errors.New("no subtitle blocks found")
	ErrBadTimestamp  = errors.New("malformed timestamp")
	ErrUnknownFormat = errors.New("unsupported input format")

	// State errors
	ErrStateTransition = errors.New("invalid state transition")
	ErrNothingToUndo   = errors.New("nothing to undo")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")

	// General errors
	ErrCanceled = errors.New("operation was canceled")
)

// IsRecoverableError checks if an error is recoverable.
func IsRecoverableError(err error) bool {
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, ErrNoSynthesizer),
		errors.Is(err, ErrEngineClosed),
		errors.Is(err, ErrInvalidConfig):
		return false
	}

	return true
}

// ErrorSeverity represents the severity of an error.
type ErrorSeverity int

const (
	// SeverityInfo is for informational messages.
	SeverityInfo ErrorSeverity = iota
	// SeverityWarning is for problems that only affect a single line.
	SeverityWarning
	// SeverityError is for errors that stop an operation.
	SeverityError
	// SeverityCritical is for errors that stop the program.
	SeverityCritical
)

// String returns the string representation of the severity.
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Error provides detailed error information.
type Error struct {
	Err       error          // The underlying error
	Component string         // Component that generated the error
	Action    string         // Action being performed when error occurred
	Severity  ErrorSeverity  // Severity of the error
	Timestamp time.Time      // When the error occurred
	Context   map[string]any // Additional context
}

// NewError creates a new error with context.
func NewError(err error, component, action string) *Error {
	return &Error{
		Err:       err,
		Component: component,
		Action:    action,
		Severity:  SeverityError,
		Timestamp: time.Now(),
		Context:   make(map[string]any),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Component != "" && e.Action != "":
		return e.Component + ": " + e.Action + ": " + msg
	case e.Component != "":
		return e.Component + ": " + msg
	default:
		return msg
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRecoverable checks if the error is recoverable.
func (e *Error) IsRecoverable() bool {
	return e.Severity < SeverityCritical && IsRecoverableError(e.Err)
}

// WithSeverity sets the error severity.
func (e *Error) WithSeverity(severity ErrorSeverity) *Error {
	e.Severity = severity
	return e
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
