// Package lessons turns the recorded outcome of a past decision into a
// short, bounded list of human-readable lines for reviewers.
package lessons

import "fmt"

// maxPerKind caps how many blocker and revision lines are surfaced.
const maxPerKind = 2

// Outcome holds the outcome fields of a recorded decision.
type Outcome struct {
	FinalRecommendation string   // empty when the decision never concluded
	DQS                 *float64 // nil when no score was recorded
	Blockers            []string
	RequiredRevisions   []string
}

// Extract renders the outcome as ordered lesson lines. The summary line is
// always present and always first; at most two blockers and two required
// revisions follow, in their recorded order. When neither list has entries
// a single sentinel line replaces them.
func Extract(o Outcome) []string {
	recommendation := o.FinalRecommendation
	if recommendation == "" {
		recommendation = "Unknown"
	}
	score := "unavailable"
	if o.DQS != nil {
		score = fmt.Sprintf("%.2f", *o.DQS)
	}

	out := []string{fmt.Sprintf("Outcome: %s; DQS %s.", recommendation, score)}

	if len(o.Blockers) == 0 && len(o.RequiredRevisions) == 0 {
		return append(out, "No explicit blockers or required revisions were recorded.")
	}

	for i, b := range o.Blockers {
		if i == maxPerKind {
			break
		}
		out = append(out, "Blocker: "+b)
	}
	for i, r := range o.RequiredRevisions {
		if i == maxPerKind {
			break
		}
		out = append(out, "Required revision: "+r)
	}
	return out
}
