package engine

import "fmt"

// State is the session lifecycle state. Idle moves to Running on Start;
// Running moves to Paused, Stopped, or Completed; Paused resumes to Running;
// Stopped and Completed require Reset to return to Idle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStopped
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateError reports an operation invalid for the current state. No state
// change happens when it is returned.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s is not allowed while %s", e.Op, e.State)
}
