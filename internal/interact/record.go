package interact

import (
	"context"

	"github.com/looplab/fsm"
)

// State is the lifecycle state of the active interaction record.
type State string

const (
	StateIdle       State = "idle"
	StateStarted    State = "started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
	StateFailed     State = "failed"
)

// Terminal reports whether s ends an interaction.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

const (
	eventStart    = "start"
	eventProgress = "progress"
	eventComplete = "complete"
	eventCancel   = "cancel"
	eventFail     = "fail"
	eventReset    = "reset"
)

// Record is the active interaction. Target is nil exactly when State is Idle.
// MashDecay carries the fraction of a count decayed but not yet removed.
type Record struct {
	State         State
	Mode          Type
	Target        Interactable
	Elapsed       float64
	Progress      float64
	MashCount     int
	MashDecay     float64
	LastEventTime float64
	PressTime     float64
	// Deadline is the machine time at which a pending hold graduates.
	Deadline   float64
	Graduated  bool
	Continuous bool
}

// Transition is reported to the machine's observer on every state change.
type Transition struct {
	From   State
	To     State
	Mode   Type
	Target Interactable
	Time   float64
}

// Observer receives lifecycle transitions.
type Observer func(Transition)

func newLifecycle() *fsm.FSM {
	active := []string{string(StateStarted), string(StateInProgress)}
	return fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: eventStart, Src: []string{string(StateIdle)}, Dst: string(StateStarted)},
			{Name: eventProgress, Src: []string{string(StateStarted)}, Dst: string(StateInProgress)},
			{Name: eventComplete, Src: active, Dst: string(StateCompleted)},
			{Name: eventCancel, Src: active, Dst: string(StateCancelled)},
			{Name: eventFail, Src: active, Dst: string(StateFailed)},
			{Name: eventReset, Src: []string{
				string(StateStarted),
				string(StateInProgress),
				string(StateCompleted),
				string(StateCancelled),
				string(StateFailed),
			}, Dst: string(StateIdle)},
		},
		fsm.Callbacks{},
	)
}

// fire applies a lifecycle event and reports whether it moved the record.
func fire(lifecycle *fsm.FSM, event string) (State, State, bool) {
	from := State(lifecycle.Current())
	if !lifecycle.Can(event) {
		return from, from, false
	}
	if err := lifecycle.Event(context.Background(), event); err != nil {
		return from, State(lifecycle.Current()), false
	}
	return from, State(lifecycle.Current()), true
}
