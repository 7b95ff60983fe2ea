package workflow

import "github.com/davidahmann/lendguard/pkg/types"

type Stage string

type NextAction string

const (
	StageMonitor Stage = "monitor"
	StageDecide  Stage = "decide"
	StageDone    Stage = "done"
)

const (
	ActionApprove       NextAction = "approve"
	ActionFlagForReview NextAction = "flag_for_review"
	ActionEscalate      NextAction = "escalate"
)

// NextStage returns the stage that follows s. Stages run strictly in order.
func NextStage(s Stage) Stage {
	switch s {
	case StageMonitor:
		return StageDecide
	default:
		return StageDone
	}
}

// TransitionFromDecision maps an ai_decision to how the final decision is
// resolved. Review-flagged records are left for the auditor and never
// escalated synchronously.
func TransitionFromDecision(aiDecision string) NextAction {
	switch aiDecision {
	case types.DecisionApproved:
		return ActionApprove
	case types.DecisionRequiresReview:
		return ActionFlagForReview
	default:
		return ActionEscalate
	}
}
