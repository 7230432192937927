package models

import (
	"time"

	"github.com/google/uuid"
)

// Eval is an analyst's judgment of a hypothesis with respect to a piece of
// evidence on the standard ACH consistency scale.
type Eval int

const (
	EvalNotApplicable Eval = iota
	EvalVeryInconsistent
	EvalInconsistent
	EvalNeutral
	EvalConsistent
	EvalVeryConsistent
)

// EvalChoices lists the valid evaluation values in display order
var EvalChoices = []Eval{
	EvalNotApplicable,
	EvalVeryInconsistent,
	EvalInconsistent,
	EvalNeutral,
	EvalConsistent,
	EvalVeryConsistent,
}

// Valid reports whether e is one of the defined evaluation values
func (e Eval) Valid() bool {
	return e >= EvalNotApplicable && e <= EvalVeryConsistent
}

func (e Eval) String() string {
	switch e {
	case EvalNotApplicable:
		return "N/A"
	case EvalVeryInconsistent:
		return "Very Inconsistent"
	case EvalInconsistent:
		return "Inconsistent"
	case EvalNeutral:
		return "Neutral"
	case EvalConsistent:
		return "Consistent"
	case EvalVeryConsistent:
		return "Very Consistent"
	default:
		return "Unknown"
	}
}

// Evaluation is a user's recorded evaluation of a hypothesis with respect to
// a piece of evidence. A user has at most one evaluation per
// (hypothesis, evidence) pair; re-voting replaces the previous value.
type Evaluation struct {
	ID           uuid.UUID `json:"id" db:"id"`
	BoardID      uuid.UUID `json:"board_id" db:"board_id"`
	HypothesisID uuid.UUID `json:"hypothesis_id" db:"hypothesis_id"`
	EvidenceID   uuid.UUID `json:"evidence_id" db:"evidence_id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	Value        Eval      `json:"value" db:"value"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
}
