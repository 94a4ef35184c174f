// Package session enforces the single-active-session rule on the client
// side and drives the confirm-terminate-retry login flow.
package session

// State represents a session guard state.
type State string

const (
	// StateNoSession indicates no authenticated user on this device.
	StateNoSession State = "no_session"
	// StateActive indicates an authenticated session on this device.
	StateActive State = "active"
	// StateConflict indicates a login blocked by a session active
	// elsewhere, pending the operator's decision.
	StateConflict State = "conflict"
)

// validTransitions contains the permitted transitions of the guard.
var validTransitions = map[State][]State{
	StateNoSession: {
		StateActive,
		StateConflict,
	},
	StateConflict: {
		StateActive,
	},
	// A fresh authoritative login while already active replaces the
	// snapshot in place.
	StateActive: {
		StateActive,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is
// valid. Dropping back to NoSession is always permitted; it is the
// recovery path for every failure.
func IsTransitionAllowed(from, to State) bool {
	if to == StateNoSession {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe guard
// transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}
