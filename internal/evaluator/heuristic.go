package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/davidahmann/lendguard/internal/policy"
)

const discriminatoryReason = "discriminatory_criterion"

// Heuristic answers every stage deterministically from the governance policy
// without a model. It recognises the stage by its system instruction, which
// must be one the same policy renders.
type Heuristic struct {
	policy policy.Policy
}

func NewHeuristic(p policy.Policy) *Heuristic {
	return &Heuristic{policy: p}
}

func (h *Heuristic) Evaluate(ctx context.Context, system, payload string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch system {
	case h.policy.BiasInstruction():
		return h.bias(gjson.Parse(payload)), nil
	case h.policy.EthicsInstruction():
		return h.ethics(gjson.Parse(payload)), nil
	case h.policy.IntakeInstruction():
		return h.triage(payload), nil
	default:
		return "", errors.New("heuristic evaluator: unrecognised instruction")
	}
}

func (h *Heuristic) EvaluateStructured(ctx context.Context, system, payload string, schema Schema) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if system != StructuredInstruction(h.policy.ComplianceInstruction(), schema) {
		return nil, errors.New("heuristic evaluator only answers structured compliance requests")
	}
	return schema.Coerce(h.compliance(gjson.Parse(payload)))
}

func (h *Heuristic) bias(doc gjson.Result) string {
	var demographics []string
	for _, d := range doc.Get("demographics").Array() {
		demographics = append(demographics, d.String())
	}
	return h.policy.BiasVerdict(demographics)
}

func (h *Heuristic) ethics(doc gjson.Result) string {
	var criteria []string
	for _, c := range doc.Get("loan_criteria").Array() {
		criteria = append(criteria, c.String())
	}
	banned := h.policy.ProhibitedCriteria(criteria)
	if len(banned) == 0 {
		return policy.TokenEthical + ". Criteria align with the ethical guidelines."
	}

	var b strings.Builder
	b.WriteString(policy.TokenUnethical + ".")
	// Prohibited criteria breach the first guideline (non-discrimination).
	for _, c := range banned {
		fmt.Fprintf(&b, " %s 1: decision uses %s.", policy.TokenViolatesPrefix, c)
	}
	return b.String()
}

func (h *Heuristic) compliance(doc gjson.Result) map[string]any {
	if doc.Get("reason").String() != discriminatoryReason {
		return map[string]any{
			"is_compliant":              true,
			"non_compliant_regulations": []string{},
			"reasons":                   []string{},
		}
	}

	var regs []string
	for _, r := range h.policy.Regulations {
		if strings.Contains(strings.ToLower(r.Name), "discrimination") {
			regs = append(regs, r.Name)
		}
	}
	if len(regs) == 0 {
		for _, r := range h.policy.Regulations {
			regs = append(regs, r.Name)
		}
	}
	return map[string]any{
		"is_compliant":              false,
		"non_compliant_regulations": regs,
		"reasons":                   []string{fmt.Sprintf("Decision %s cites a discriminatory criterion", doc.Get("decision_id").String())},
	}
}

func (h *Heuristic) triage(text string) string {
	lower := strings.ToLower(text)
	for _, g := range h.policy.Bias.WatchGroups {
		if strings.Contains(lower, strings.ToLower(g)) {
			return "Potential bias detected for " + g
		}
	}
	return "No risk signals identified"
}
