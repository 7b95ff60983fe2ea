package checks

import (
	"context"

	"github.com/davidahmann/lendguard/internal/crypto"
	"github.com/davidahmann/lendguard/internal/evaluator"
	"github.com/davidahmann/lendguard/internal/logging"
	"github.com/davidahmann/lendguard/internal/policy"
	"github.com/davidahmann/lendguard/pkg/types"
)

// RegulationCheckError is the sentinel regulation reported when the audit
// itself could not run.
const RegulationCheckError = "Error during compliance check"

// ComplianceSchema is the structured reply the audit requests.
var ComplianceSchema = evaluator.Schema{
	"is_compliant":              evaluator.FieldBool,
	"non_compliant_regulations": evaluator.FieldStringList,
	"reasons":                   evaluator.FieldStringList,
}

// ComplianceAudit checks a proposed decision against the regulations. It
// fails closed and never returns an error.
type ComplianceAudit struct {
	eval        evaluator.Evaluator
	instruction string
}

func NewComplianceAudit(eval evaluator.Evaluator, p policy.Policy) *ComplianceAudit {
	return &ComplianceAudit{
		eval:        eval,
		instruction: evaluator.StructuredInstruction(p.ComplianceInstruction(), ComplianceSchema),
	}
}

func (a *ComplianceAudit) Audit(ctx context.Context, d types.ComplianceDecision) types.ComplianceReport {
	payload, err := crypto.CanonicalizeJSON(d)
	if err != nil {
		return failedCompliance(err)
	}

	obj, err := a.eval.EvaluateStructured(ctx, a.instruction, string(payload), ComplianceSchema)
	if err == nil {
		obj, err = ComplianceSchema.Coerce(obj)
	}
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "compliance audit failed closed", "decision_id", d.DecisionID, "error", err)
		return failedCompliance(err)
	}

	// Coerce guarantees the field types.
	return types.ComplianceReport{
		IsCompliant:             obj["is_compliant"].(bool),
		NonCompliantRegulations: append([]string{}, obj["non_compliant_regulations"].([]string)...),
		Reasons:                 append([]string{}, obj["reasons"].([]string)...),
	}
}

// AuditFailed reports whether r is the fail-closed result of an audit that
// could not run, as opposed to a real finding.
func AuditFailed(r types.ComplianceReport) bool {
	for _, reg := range r.NonCompliantRegulations {
		if reg == RegulationCheckError {
			return true
		}
	}
	return false
}

func failedCompliance(err error) types.ComplianceReport {
	return types.ComplianceReport{
		IsCompliant:             false,
		NonCompliantRegulations: []string{RegulationCheckError},
		Reasons:                 []string{"Compliance check failed: " + err.Error()},
	}
}
