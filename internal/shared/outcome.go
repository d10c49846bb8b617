package shared

// Outcome reports whether a state-changing operation took effect.
//
// Player and library operations never fail on missing preconditions (empty queue, unknown id,
// duplicate add); they report [Skipped] instead so callers can observe the no-op.
type Outcome int

const (
	Skipped Outcome = iota
	Applied
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	default:
		return ""
	}
}

// Changed reports whether the operation mutated state.
func (o Outcome) Changed() bool { return o == Applied }
