package session

// State is the explicit lifecycle of one capture session.
type State int

const (
	// Idle is the initial state; nothing is listening yet.
	Idle State = iota
	// Armed means interception and the manual-fetch control are live and the
	// session is waiting for a candidate.
	Armed
	// Captured is terminal success; later candidates are ignored.
	Captured
	// FetchFailed is entered when a manual fetch fails; rearming allows retry
	// while interception stays active.
	FetchFailed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Captured:
		return "captured"
	case FetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}

// Trigger is an input to the transition function.
type Trigger int

const (
	TriggerArm Trigger = iota
	TriggerCandidate
	TriggerFetchError
	TriggerRearm
)

// Transition returns the state reached from s on trigger tr, and whether the
// transition is legal. Illegal inputs leave the state unchanged.
func Transition(s State, tr Trigger) (State, bool) {
	switch {
	case s == Idle && tr == TriggerArm:
		return Armed, true
	case s == Armed && tr == TriggerCandidate:
		return Captured, true
	case s == Armed && tr == TriggerFetchError:
		return FetchFailed, true
	case s == FetchFailed && tr == TriggerRearm:
		return Armed, true
	default:
		return s, false
	}
}
