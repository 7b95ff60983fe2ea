package checks

import (
	"context"

	"github.com/pkg/errors"

	"github.com/davidahmann/lendguard/internal/crypto"
	"github.com/davidahmann/lendguard/internal/evaluator"
	"github.com/davidahmann/lendguard/internal/policy"
	"github.com/davidahmann/lendguard/pkg/types"
)

// BiasScreen asks the evaluator whether a batch of applications shows
// demographic skew. It does not fall back: evaluator errors are returned.
type BiasScreen struct {
	eval        evaluator.Evaluator
	instruction string
}

func NewBiasScreen(eval evaluator.Evaluator, p policy.Policy) *BiasScreen {
	return &BiasScreen{eval: eval, instruction: p.BiasInstruction()}
}

type biasSummary struct {
	Demographics   []string `json:"demographics"`
	PriorRiskFlags []string `json:"prior_risk_flags"`
}

// Screen returns the evaluator's raw verdict for apps. The records are not
// modified.
func (s *BiasScreen) Screen(ctx context.Context, apps []types.Application) (string, error) {
	summary := biasSummary{
		Demographics:   make([]string, 0, len(apps)),
		PriorRiskFlags: make([]string, 0, len(apps)),
	}
	for _, app := range apps {
		summary.Demographics = append(summary.Demographics, app.Demographic)
		summary.PriorRiskFlags = append(summary.PriorRiskFlags, app.RiskFlag)
	}

	payload, err := crypto.CanonicalizeJSON(summary)
	if err != nil {
		return "", errors.Wrap(err, "encode bias summary")
	}

	verdict, err := s.eval.Evaluate(ctx, s.instruction, string(payload))
	if err != nil {
		return "", errors.Wrap(err, "bias screen")
	}
	return verdict, nil
}
