package dispatch

// State is the lifecycle position of one message inside the engine.
type State int

const (
	StatePending State = iota
	StateInFlight
	StateRetryWait
	StateSucceeded
	StateFailedTerminal
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInFlight:
		return "in_flight"
	case StateRetryWait:
		return "retry_wait"
	case StateSucceeded:
		return "succeeded"
	case StateFailedTerminal:
		return "failed_terminal"
	default:
		return "unknown"
	}
}

// Final reports whether no further transition is possible.
func (s State) Final() bool {
	return s == StateSucceeded || s == StateFailedTerminal
}

// next decides the state after an attempt with the given outcome.
func next(outcome Outcome, attempts int) State {
	switch outcome {
	case OutcomeSuccess:
		return StateSucceeded
	case OutcomeRetryable:
		if attempts < MaxAttempts {
			return StateRetryWait
		}
	}
	return StateFailedTerminal
}
