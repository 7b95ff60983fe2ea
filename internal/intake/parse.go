package intake

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/davidahmann/lendguard/internal/evaluator"
	"github.com/davidahmann/lendguard/internal/logging"
	"github.com/davidahmann/lendguard/internal/policy"
	"github.com/davidahmann/lendguard/pkg/types"
)

const Unknown = "unknown"

// Parser turns a raw submission into the initial application record.
type Parser struct {
	eval        evaluator.Evaluator
	instruction string
}

func NewParser(eval evaluator.Evaluator, p policy.Policy) *Parser {
	return &Parser{eval: eval, instruction: p.IntakeInstruction()}
}

// Parse never fails. Text that is not a JSON object yields a record with an
// unknown applicant and the raw text as its description. The risk flag is
// the evaluator's first-pass note on the raw text.
func (p *Parser) Parse(ctx context.Context, text string) types.Application {
	app := Extract(text)

	flag, err := p.eval.Evaluate(ctx, p.instruction, text)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "initial evaluation failed", "applicant_id", app.ApplicantID, "error", err)
		flag = "Error processing submission: " + err.Error()
	}
	app.RiskFlag = strings.TrimSpace(flag)
	return app
}

// Extract reads application fields out of text without calling the evaluator.
func Extract(text string) types.Application {
	app := types.Application{
		ApplicantID: Unknown,
		Demographic: Unknown,
		LoanStatus:  types.LoanStatusPending,
	}

	trimmed := strings.TrimSpace(text)
	if !gjson.Valid(trimmed) || !gjson.Parse(trimmed).IsObject() {
		app.Description = text
		return app
	}

	doc := gjson.Parse(trimmed)
	if v, ok := scalar(doc.Get("applicant_id")); ok {
		app.ApplicantID = v
	}
	if v, ok := scalar(doc.Get("demographic")); ok {
		app.Demographic = v
	}
	app.LoanAmount = doc.Get("loan_amount").Float()
	app.AnnualIncome = doc.Get("annual_income").Float()
	app.CreditScore = int(doc.Get("credit_score").Int())
	app.LoanPurpose = doc.Get("loan_purpose").String()
	app.Description = doc.Get("description").String()
	app.EmploymentStatus = doc.Get("employment_status").String()
	for _, c := range doc.Get("loan_criteria").Array() {
		if s := strings.TrimSpace(c.String()); s != "" {
			app.LoanCriteria = append(app.LoanCriteria, s)
		}
	}
	return app
}

// scalar returns the text of a non-empty string or number. Objects, arrays,
// booleans and null are rejected.
func scalar(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.String, gjson.Number:
		return v.String(), v.String() != ""
	default:
		return "", false
	}
}
