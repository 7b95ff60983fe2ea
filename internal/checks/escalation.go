package checks

import (
	"context"

	"github.com/davidahmann/lendguard/internal/approval"
	"github.com/davidahmann/lendguard/internal/logging"
	"github.com/davidahmann/lendguard/pkg/types"
)

// Escalation asks a human to confirm or override a non-approved decision.
type Escalation struct {
	channel approval.Channel
}

func NewEscalation(channel approval.Channel) *Escalation {
	if channel == nil {
		channel = approval.StaticChannel{}
	}
	return &Escalation{channel: channel}
}

// Escalate returns the decision to record. Approved decisions pass through
// without contacting the channel; otherwise an override yields approved and
// anything else, including a channel error, keeps aiDecision.
func (e *Escalation) Escalate(ctx context.Context, app types.Application, aiDecision string) string {
	if aiDecision == types.DecisionApproved {
		return types.DecisionApproved
	}

	logger := logging.FromContext(ctx)
	override, err := e.channel.RequestOverride(ctx, approval.Request{
		ApplicantID: app.ApplicantID,
		AIDecision:  aiDecision,
		Demographic: app.Demographic,
		RiskFlag:    app.RiskFlag,
	})
	if err != nil {
		logger.WarnContext(ctx, "escalation channel failed; keeping ai decision", "applicant_id", app.ApplicantID, "error", err)
		override = false
	}

	decision := aiDecision
	if override {
		decision = types.DecisionApproved
	}
	logger.InfoContext(ctx, "human escalation recorded", "applicant_id", app.ApplicantID, "ai_decision", aiDecision, "final_decision", decision)
	return decision
}
