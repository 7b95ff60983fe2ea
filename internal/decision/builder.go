package decision

import (
	"github.com/davidahmann/lendguard/internal/crypto"
	"github.com/davidahmann/lendguard/pkg/types"
)

const (
	DecisionIDPrefix     = "LD-"
	ReasonDiscriminatory = "discriminatory_criterion"
)

// BuildComplianceDecision builds the payload submitted to the compliance
// audit and computes its content digest.
func BuildComplianceDecision(applicantID, aiDecision string, criteria []string) (types.ComplianceDecision, error) {
	d := types.ComplianceDecision{
		DecisionID:  DecisionIDPrefix + applicantID,
		ApplicantID: applicantID,
		Decision:    aiDecision,
		Criteria:    append([]string{}, criteria...),
	}
	if aiDecision != types.DecisionApproved {
		d.Reason = ReasonDiscriminatory
	}

	canonical, err := crypto.CanonicalizeJSON(d)
	if err != nil {
		return types.ComplianceDecision{}, err
	}

	d.Digest = crypto.DigestWithPrefix(canonical)
	return d, nil
}
