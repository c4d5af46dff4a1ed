// Package oracle is the semantic consistency judge. It submits a claim plus
// its verified context texts to a chat-completion endpoint whose system
// instruction constrains the reply to a single digit, and decodes that digit
// into a three-value verdict. The contract is the tri-state verdict, not the
// transport.
package oracle

import (
	"fmt"
	"strings"
)

// Verdict is the oracle's judgement of a claim against its context.
type Verdict int

const (
	// Consistent: the claim does not contradict the context.
	Consistent Verdict = iota
	// Contradictory: the claim contradicts or misstates the context.
	Contradictory
	// Ambiguous: the context does not determine whether the claim
	// contradicts it. Gating treats this as non-blocking.
	Ambiguous
)

func (v Verdict) String() string {
	switch v {
	case Consistent:
		return "consistent"
	case Contradictory:
		return "contradictory"
	case Ambiguous:
		return "ambiguous"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Wire digits. 2 is unassigned upstream and rejected like any other garbage.
const (
	digitContradictory = "0"
	digitConsistent    = "1"
	digitAmbiguous     = "3"
)

// DecodeVerdict parses the model's reply. Anything but the three known digits
// is a loud error, never a default verdict.
func DecodeVerdict(reply string) (Verdict, error) {
	switch strings.TrimSpace(reply) {
	case digitConsistent:
		return Consistent, nil
	case digitContradictory:
		return Contradictory, nil
	case digitAmbiguous:
		return Ambiguous, nil
	default:
		return 0, fmt.Errorf("unexpected oracle reply %q", reply)
	}
}
