package dub

import "testing"

// TestLineStateString tests state names.
func TestLineStateString(t *testing.T) {
	tests := []struct {
		state    LineState
		expected string
	}{
		{StatePending, "pending"},
		{StateMeasuring, "measuring"},
		{StateMeasured, "measured"},
		{StateMeasureFailed, "measure_failed"},
		{StateClassified, "classified"},
		{StateApplied, "applied"},
		{LineState(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("LineState(%d).String() = %s, want %s", tt.state, got, tt.expected)
		}
	}
}

// TestStateMachineMeasuredPath tests the successful measurement path.
func TestStateMachineMeasuredPath(t *testing.T) {
	sm := NewStateMachine()

	for _, to := range []LineState{StateMeasuring, StateMeasured, StateClassified, StateApplied} {
		if !sm.Transition(to) {
			t.Fatalf("Transition %s -> %s should be valid", sm.Current(), to)
		}
	}

	if !sm.Current().Done() {
		t.Error("Line should be done after applying")
	}
}

// TestStateMachineFailedPath tests that failed measurements go straight to
// classification.
func TestStateMachineFailedPath(t *testing.T) {
	sm := NewStateMachine()
	sm.Transition(StateMeasuring)

	if !sm.Transition(StateMeasureFailed) {
		t.Fatal("measuring -> measure_failed should be valid")
	}
	if sm.Transition(StateMeasuring) {
		t.Error("A failed line must not be measured again")
	}
	if !sm.Transition(StateClassified) {
		t.Fatal("measure_failed -> classified should be valid")
	}
}

// TestStateMachineInvalidTransitions tests rejected transitions.
func TestStateMachineInvalidTransitions(t *testing.T) {
	sm := NewStateMachine()

	if sm.Transition(StateApplied) {
		t.Error("pending -> applied should be invalid")
	}
	if sm.Transition(StateMeasured) {
		t.Error("pending -> measured should be invalid")
	}
	if sm.Current() != StatePending {
		t.Errorf("State should remain pending, got %s", sm.Current())
	}
}

// TestStateMachineCallbacks tests enter and exit callbacks.
func TestStateMachineCallbacks(t *testing.T) {
	sm := NewStateMachine()

	var entered, exited bool
	sm.OnEnter(StateMeasuring, func() { entered = true })
	sm.OnExit(StatePending, func() { exited = true })

	sm.Transition(StateMeasuring)

	if !entered {
		t.Error("Enter callback was not called")
	}
	if !exited {
		t.Error("Exit callback was not called")
	}
}
