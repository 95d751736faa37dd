package supervisor

// State is the lifecycle state of a supervised worker process.
type State int

const (
	// StateNotStarted means the supervisor was created but Start
	// has not been called yet.
	StateNotStarted State = iota

	// StateStarting means Start is in progress: the worker is being
	// spawned and assigned to its isolation group.
	StateStarting

	// StateRunning means the worker is alive and monitored.
	StateRunning

	// StateStopping means the termination protocol is in progress.
	StateStopping

	// StateStopped means the worker exited and all resources were
	// released.
	StateStopped

	// StateFailed means the supervisor gave up on the worker due to
	// an internal monitoring or termination failure.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can occur from s.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}

// legalTransition reports whether the edge from -> to is part of the
// lifecycle graph. The only edges are
// NotStarted -> Starting -> Running -> Stopping -> {Stopped, Failed},
// plus Starting -> Stopping for unwinding a failed start.
func legalTransition(from, to State) bool {
	switch from {
	case StateNotStarted:
		return to == StateStarting
	case StateStarting:
		return to == StateRunning || to == StateStopping
	case StateRunning:
		return to == StateStopping
	case StateStopping:
		return to == StateStopped || to == StateFailed
	default:
		return false
	}
}
