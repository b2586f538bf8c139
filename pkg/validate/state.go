package validate

import "fmt"

// State is the lifecycle state of one rule within a run.
type State string

const (
	StatePending    State = "PENDING"
	StateSkipped    State = "SKIPPED"
	StateEvaluating State = "EVALUATING"
	StatePassed     State = "PASSED"
	StateFailed     State = "FAILED"
	StateFixApplied State = "FIX_APPLIED"
	StateFixFailed  State = "FIX_FAILED"
)

var transitions = map[State][]State{
	StatePending:    {StateSkipped, StateEvaluating, StateFailed},
	StateEvaluating: {StatePassed, StateFailed},
	StateFailed:     {StateFixApplied, StateFixFailed},
}

// Satisfied reports whether dependents of a rule in this state may run.
func (s State) Satisfied() bool {
	return s == StatePassed || s == StateFixApplied
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// next validates a transition.
func (s State) next(to State) (State, error) {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("invalid rule transition %s -> %s", s, to)
}
