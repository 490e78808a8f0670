// Package middleware holds the budget stages that wrap each model call in a
// turn: a pre-call context warning and a post-call price limit. Stages carry
// per-session state and communicate through small closed result types rather
// than a dynamic event bag, so the pipeline can match exhaustively.
package middleware

import "fmt"

// Warning is the advisory produced by the context budget stage. It never
// blocks the pipeline; it is attached to the turn's event stream.
type Warning struct {
	PercentUsed float64
	UsedTokens  int64
	MaxTokens   int64
}

// Message renders the user-facing warning text.
func (w Warning) Message() string {
	return fmt.Sprintf("You have used %.0f%% of your total context (%d/%d tokens)",
		w.PercentUsed*100, w.UsedTokens, w.MaxTokens)
}

// DecisionKind discriminates the post-call budget result.
type DecisionKind int

const (
	DecisionContinue DecisionKind = iota
	DecisionAbort
)

// Decision is the result of the price limit stage after a model call.
// An Abort is turn-fatal: the pipeline must stop issuing model and tool
// calls and surface the reason.
type Decision struct {
	Kind    DecisionKind
	Reason  string
	Overage float64 // dollars past the ceiling, Abort only
}

// Continue returns the non-aborting decision.
func Continue() Decision {
	return Decision{Kind: DecisionContinue}
}

// Abort returns a turn-fatal decision with the given reason.
func Abort(reason string, overage float64) Decision {
	return Decision{Kind: DecisionAbort, Reason: reason, Overage: overage}
}
