package workflow

import (
	"fmt"
	"strings"

	"github.com/davidahmann/lendguard/internal/policy"
	"github.com/davidahmann/lendguard/pkg/types"
)

// Summary renders the final state of a run on one line:
// applicant_id=<id> demographic='<d>' loan_status='<s>' risk_flag='<r>' final_decision='<f>'
func Summary(app types.Application) string {
	return fmt.Sprintf("applicant_id=%s demographic='%s' loan_status='%s' risk_flag='%s' final_decision='%s'",
		app.ApplicantID, app.Demographic, app.LoanStatus, app.RiskFlag, app.FinalDecision)
}

// AIDecision is the automated recommendation: requires further review when
// the bias verdict reports likely bias or ethics did not approve, else approved.
func AIDecision(biasVerdict string, ethics types.EthicsReview) string {
	if strings.Contains(biasVerdict, policy.TokenBiasLikely) || !ethics.Approves() {
		return types.DecisionRequiresReview
	}
	return types.DecisionApproved
}
