package workflow

import "strings"

// Decision is the reflection agent's verdict on the gathered evidence.
type Decision int

const (
	// DecisionApprove releases the session to synthesis.
	DecisionApprove Decision = iota
	// DecisionMoreResearch loops the session back to searching.
	DecisionMoreResearch
	// DecisionDefault is approve chosen because no recognizable token was
	// found. Failing open guarantees forward progress; this default is
	// deliberate and covered by tests, not an accidental fallthrough.
	DecisionDefault
)

const (
	approveToken      = "APPROVE"
	moreResearchToken = "MORE RESEARCH"
)

// Reason describes the decision for transition logging.
func (d Decision) Reason() string {
	switch d {
	case DecisionApprove:
		return "research approved"
	case DecisionMoreResearch:
		return "more research requested"
	default:
		return "no decision token found, defaulting to approve"
	}
}

// ParseDecision extracts the approve/reject signal from a reflection reply.
//
// The reflector's contract is a structured "DECISION: ..." line; free-text
// scanning for the bare tokens is the documented fallback. A reply with no
// recognizable token resolves to DecisionDefault (approve).
func ParseDecision(reply string) Decision {
	upper := strings.ToUpper(reply)

	for _, line := range strings.Split(upper, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, "DECISION:")
		if !ok {
			continue
		}
		if strings.Contains(rest, moreResearchToken) {
			return DecisionMoreResearch
		}
		if strings.Contains(rest, approveToken) {
			return DecisionApprove
		}
	}

	// Fallback: bare tokens anywhere in the prose.
	if strings.Contains(upper, moreResearchToken) {
		return DecisionMoreResearch
	}
	if strings.Contains(upper, approveToken) {
		return DecisionApprove
	}

	return DecisionDefault
}
