package router

// State is a step of the per-turn pipeline.
type State string

// Turn states.
const (
	StateClassify  State = "CLASSIFY"
	StateDispatch  State = "DISPATCH"
	StateSummarize State = "SUMMARIZE"
	StateDone      State = "DONE"
	StateFailed    State = "FAILED"
)

// validTransitions defines the turn pipeline.
//
//nolint:gochecknoglobals // state machine definition
var validTransitions = map[State][]State{
	StateClassify:  {StateDispatch, StateFailed},
	StateDispatch:  {StateSummarize, StateFailed},
	StateSummarize: {StateDone},
	StateDone:      {},
	StateFailed:    {},
}

// IsValidTransition reports whether a turn may move from one state to another.
func IsValidTransition(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s ends a turn.
func IsTerminal(s State) bool {
	return s == StateDone || s == StateFailed
}
