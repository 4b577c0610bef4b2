package dub

// LineState represents the progress of one line through a smart sync pass.
type LineState int

const (
	// StatePending indicates the line has not been processed yet.
	StatePending LineState = iota
	// StateMeasuring indicates the engine is timing the line.
	StateMeasuring
	// StateMeasured indicates at least one trial succeeded.
	StateMeasured
	// StateMeasureFailed indicates no trial succeeded.
	StateMeasureFailed
	// StateClassified indicates a quality report exists for the line.
	StateClassified
	// StateApplied indicates the result was written to the line.
	StateApplied
)

// String returns the string representation of the state.
func (s LineState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateMeasuring:
		return "measuring"
	case StateMeasured:
		return "measured"
	case StateMeasureFailed:
		return "measure_failed"
	case StateClassified:
		return "classified"
	case StateApplied:
		return "applied"
	default:
		return "unknown"
	}
}

// Done reports whether the line finished its pass.
func (s LineState) Done() bool {
	return s == StateApplied
}

// StateMachine tracks the state of a single line during a sync pass.
type StateMachine struct {
	current     LineState
	transitions map[LineState][]LineState
	onEnter     map[LineState]func()
	onExit      map[LineState]func()
}

// NewStateMachine creates a state machine in the pending state.
// There is no edge back to measuring: a pass never retries a line.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StatePending,
		transitions: map[LineState][]LineState{
			StatePending:       {StateMeasuring, StateClassified},
			StateMeasuring:     {StateMeasured, StateMeasureFailed},
			StateMeasured:      {StateClassified},
			StateMeasureFailed: {StateClassified},
			StateClassified:    {StateApplied},
			StateApplied:       {},
		},
		onEnter: make(map[LineState]func()),
		onExit:  make(map[LineState]func()),
	}
}

// Transition attempts to transition to the specified state.
func (sm *StateMachine) Transition(to LineState) bool {
	valid := false
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	if exitFn, ok := sm.onExit[sm.current]; ok && exitFn != nil {
		exitFn()
	}

	sm.current = to

	if enterFn, ok := sm.onEnter[to]; ok && enterFn != nil {
		enterFn()
	}

	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() LineState {
	return sm.current
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state LineState, fn func()) {
	sm.onEnter[state] = fn
}

// OnExit registers a callback for exiting a state.
func (sm *StateMachine) OnExit(state LineState, fn func()) {
	sm.onExit[state] = fn
}
