package artracking

// TrackingState is the visibility of the reference target.
type TrackingState int

// The tracker starts in NotFound. Found means the pose was computed from the latest frame; Stale
// means the latest frame matched too weakly to recompute it, so the previous pose is kept.
const (
	NotFound TrackingState = iota
	Found
	Stale
)

func (s TrackingState) String() string {
	switch s {
	case NotFound:
		return "not_found"
	case Found:
		return "found"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its name.
func (s TrackingState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Decision names the rule that decided the outcome of a frame.
type Decision int

// Decisions, in the order the rules are checked.
const (
	DecisionCanceled Decision = iota
	DecisionNoFeatures
	DecisionTooFewMatches
	DecisionLost
	DecisionHold
	DecisionTooFewGoodMatches
	DecisionSolverFailed
	DecisionFound
)

var decisionNames = map[Decision]string{
	DecisionCanceled:          "canceled",
	DecisionNoFeatures:        "no_features",
	DecisionTooFewMatches:     "too_few_matches",
	DecisionLost:              "lost",
	DecisionHold:              "hold",
	DecisionTooFewGoodMatches: "too_few_good_matches",
	DecisionSolverFailed:      "solver_failed",
	DecisionFound:             "found",
}

func (d Decision) String() string {
	if name, ok := decisionNames[d]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the decision as its name.
func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
