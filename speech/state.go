package speech

// State represents the playback state of the controller.
type State int

const (
	// StateIdle indicates nothing is being spoken.
	StateIdle State = iota
	// StateSpeaking indicates an utterance is queued or audible.
	StateSpeaking
	// StatePaused indicates the active utterance is paused.
	StatePaused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// IsActive returns true if an utterance is speaking or paused.
func (s State) IsActive() bool {
	return s == StateSpeaking || s == StatePaused
}

// CanPause returns true if the state allows a pause request.
func (s State) CanPause() bool {
	return s == StateSpeaking
}

// CanResume returns true if the state allows a resume request.
func (s State) CanResume() bool {
	return s == StatePaused
}

// transitions lists the event-driven moves the controller accepts.
// Cancel, error and speak are valid from every state and are not listed.
var transitions = map[State][]State{
	StateIdle:     {StateSpeaking},
	StateSpeaking: {StateSpeaking, StatePaused, StateIdle},
	StatePaused:   {StateSpeaking, StateIdle},
}

// canTransition reports whether moving from one state to another is
// allowed for callback-driven events.
func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// derive maps engine flags to the state they imply.
func derive(speaking, paused bool) State {
	switch {
	case paused:
		return StatePaused
	case speaking:
		return StateSpeaking
	default:
		return StateIdle
	}
}
