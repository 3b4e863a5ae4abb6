package classify

import "github.com/roach88/endorser/internal/rules"

// Outcome is the result of classifying one request.
//
// Sealed: Endorsable and NotEndorsable are the only implementations.
type Outcome interface {
	outcomeNode()
}

// Endorsable carries the criteria to match against the allow-list.
type Endorsable struct {
	Criteria rules.Criteria
}

func (Endorsable) outcomeNode() {}

// NotEndorsable explains why a request cannot be auto-endorsed.
type NotEndorsable struct {
	Reason string
}

func (NotEndorsable) outcomeNode() {}

func notEndorsable(reason string) Outcome {
	return NotEndorsable{Reason: reason}
}
