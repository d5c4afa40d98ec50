package workflow

// State is the derived workflow state of a job's Schedule of Values
type State string

const (
	StateDraft    State = "draft"
	StateApproved State = "approved"
	StateLocked   State = "locked"
)

var validStates = map[State]bool{
	StateDraft:    true,
	StateApproved: true,
	StateLocked:   true,
}

// IsTerminal returns true once the SOV can no longer change
func (s State) IsTerminal() bool {
	return s == StateLocked
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known SOV state
func (s State) IsValid() bool {
	return validStates[s]
}

// Derive computes the state from stored facts. A draw makes the SOV locked
// regardless of the stored approval flags
func Derive(hasDraws, allApproved bool) State {
	switch {
	case hasDraws:
		return StateLocked
	case allApproved:
		return StateApproved
	default:
		return StateDraft
	}
}
