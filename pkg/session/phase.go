package session

// Phase tracks where a streaming solve currently is. Completed and Errored
// are terminal: once reached, no event moves the session again.
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseStarted
	PhaseRouting
	PhaseRouted
	PhaseStepping
	PhaseFinalizing
	PhaseCompleted
	PhaseErrored
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseStarted:
		return "started"
	case PhaseRouting:
		return "routing"
	case PhaseRouted:
		return "routed"
	case PhaseStepping:
		return "stepping"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseCompleted:
		return "completed"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase latches the session shut.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseErrored
}
