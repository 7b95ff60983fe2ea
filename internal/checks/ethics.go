package checks

import (
	"context"
	"strings"

	"github.com/davidahmann/lendguard/internal/crypto"
	"github.com/davidahmann/lendguard/internal/evaluator"
	"github.com/davidahmann/lendguard/internal/logging"
	"github.com/davidahmann/lendguard/internal/policy"
	"github.com/davidahmann/lendguard/pkg/types"
)

const (
	ReasonInconclusive  = "Inconclusive ethics evaluation; manual review required."
	ethicsFailurePrefix = "Ethics evaluation failed: "
	guidelineToken      = "Guideline"
)

// EthicsReview checks an application against the ethical guidelines. It
// fails closed: an evaluator error yields an unethical verdict.
type EthicsReview struct {
	eval        evaluator.Evaluator
	instruction string
}

func NewEthicsReview(eval evaluator.Evaluator, p policy.Policy) *EthicsReview {
	return &EthicsReview{eval: eval, instruction: p.EthicsInstruction()}
}

func (r *EthicsReview) Review(ctx context.Context, app types.Application) types.EthicsReview {
	payload, err := crypto.CanonicalizeJSON(app)
	if err != nil {
		return failedEthics(err)
	}

	text, err := r.eval.Evaluate(ctx, r.instruction, string(payload))
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "ethics review failed closed", "applicant_id", app.ApplicantID, "error", err)
		return failedEthics(err)
	}
	return ParseEthicsVerdict(text)
}

// ReviewFailed reports whether r is the fail-closed result of a review that
// could not reach the evaluator.
func ReviewFailed(r types.EthicsReview) bool {
	return len(r.Reasons) == 1 && strings.HasPrefix(r.Reasons[0], ethicsFailurePrefix)
}

func failedEthics(err error) types.EthicsReview {
	ethical := false
	return types.EthicsReview{Ethical: &ethical, Reasons: []string{ethicsFailurePrefix + err.Error()}}
}

// ParseEthicsVerdict reads an ETHICAL or UNETHICAL verdict out of free text.
// ETHICAL only counts where it is not part of UNETHICAL. Text with neither
// token is inconclusive.
func ParseEthicsVerdict(text string) types.EthicsReview {
	upper := strings.ToUpper(text)
	reasons := violations(text)

	var ethical bool
	switch {
	case strings.Contains(strings.ReplaceAll(upper, policy.TokenUnethical, ""), policy.TokenEthical):
		ethical = true
	case strings.Contains(upper, policy.TokenUnethical):
		ethical = false
		if len(reasons) == 0 {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				reasons = []string{trimmed}
			}
		}
	default:
		return types.EthicsReview{Reasons: append(reasons, ReasonInconclusive)}
	}

	if reasons == nil {
		reasons = []string{}
	}
	return types.EthicsReview{Ethical: &ethical, Reasons: reasons}
}

// violations splits "Violates Guideline 1: ... Violates Guideline 2: ..."
// into one reason per guideline.
func violations(text string) []string {
	if !strings.Contains(text, policy.TokenViolatesPrefix) {
		return nil
	}
	segments := strings.Split(text, guidelineToken)
	var out []string
	for _, seg := range segments[1:] {
		reason := strings.TrimSpace(guidelineToken + seg)
		reason = strings.TrimSpace(strings.TrimSuffix(reason, "Violates"))
		if reason == guidelineToken {
			continue
		}
		out = append(out, reason)
	}
	return out
}
