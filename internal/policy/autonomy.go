// Package policy decides whether an outreach action needs human approval
// before it may execute.
package policy

import (
	"fmt"

	"github.com/unclebandit/salesloop-backend/internal/model"
)

// Decision is the outcome of an autonomy check. Reason is human-readable and
// shown alongside the approval item.
type Decision struct {
	Required bool
	Reason   string
}

// Evaluate applies the workspace autonomy policy to one action.
//
//   - deployedByUser: the human already consented by launching the sequence.
//   - manual_approval: everything waits for a human.
//   - semi_autonomous: below-threshold confidence or a high-risk channel waits.
//   - fully_autonomous: nothing waits.
//   - anything else fails safe and waits.
func Evaluate(level model.AutonomyLevel, channel model.Channel, confidence, threshold int, deployedByUser bool) Decision {
	if deployedByUser {
		return Decision{Required: false, Reason: "sequence deployed directly by user"}
	}

	switch level {
	case model.AutonomyManualApproval:
		return Decision{Required: true, Reason: "workspace requires manual approval for all actions"}
	case model.AutonomyFullyAutonomous:
		return Decision{Required: false, Reason: "workspace is fully autonomous"}
	case model.AutonomySemiAutonomous:
		if channel.HighRisk() {
			return Decision{Required: true, Reason: fmt.Sprintf("%s is a high-risk channel", channel)}
		}
		if confidence < threshold {
			return Decision{Required: true, Reason: fmt.Sprintf("confidence %d below threshold %d", confidence, threshold)}
		}
		return Decision{Required: false, Reason: fmt.Sprintf("confidence %d meets threshold %d", confidence, threshold)}
	default:
		return Decision{Required: true, Reason: fmt.Sprintf("unrecognized autonomy level %q", level)}
	}
}
