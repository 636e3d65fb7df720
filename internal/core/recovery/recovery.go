// Package recovery decides how a stalled run gets unstuck. The decision
// tree is pure; acting on a decision (re-appending stage_started, or the
// separate operator abort) happens in the application layer.
package recovery

import (
	"fmt"

	"github.com/example/loopctl/internal/core/state"
)

// Action is the recovery decision for one stage.
type Action string

const (
	ActionResume   Action = "resume"
	ActionRestart  Action = "restart"
	ActionAbort    Action = "abort"
	ActionNoAction Action = "no-action"
)

// Decision is the outcome of the recovery tree.
type Decision struct {
	Action      Action `json:"action"`
	TargetStage string `json:"target_stage"`
	Reason      string `json:"reason"`
}

// Decide maps the target stage's derived status to a recovery action.
// Blocked and active both resume (an active stage may be a crashed
// worker that never completed); pending restarts; done needs nothing.
func Decide(derived *state.DerivedState, targetStage string) Decision {
	st, ok := derived.Stages[targetStage]
	if !ok {
		return Decision{
			Action:      ActionNoAction,
			TargetStage: targetStage,
			Reason:      fmt.Sprintf("stage %s is not part of this loop", targetStage),
		}
	}

	switch st.Status {
	case state.StatusDone:
		return Decision{
			Action:      ActionNoAction,
			TargetStage: targetStage,
			Reason:      fmt.Sprintf("stage %s already complete", targetStage),
		}
	case state.StatusBlocked:
		reason := fmt.Sprintf("stage %s is blocked; resume once the dependency clears", targetStage)
		if st.BlockingReason != nil {
			reason = fmt.Sprintf("stage %s is blocked (%s); resume once the dependency clears", targetStage, *st.BlockingReason)
		}
		return Decision{Action: ActionResume, TargetStage: targetStage, Reason: reason}
	case state.StatusActive:
		return Decision{
			Action:      ActionResume,
			TargetStage: targetStage,
			Reason:      fmt.Sprintf("stage %s is active but may be stalled; resume to re-drive it", targetStage),
		}
	default:
		return Decision{
			Action:      ActionRestart,
			TargetStage: targetStage,
			Reason:      fmt.Sprintf("stage %s never started", targetStage),
		}
	}
}
