package intake

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/davidahmann/lendguard/pkg/types"
)

// ApplicantSuffixLayout is appended to a typed applicant id so repeat
// submissions stay distinguishable in the append-only store.
const ApplicantSuffixLayout = "2006-01-02-15-04"

var validate = validator.New(validator.WithRequiredStructEnabled())

// FormInput is an application as typed by a human, before numeric parsing.
type FormInput struct {
	ApplicantID      string `validate:"required"`
	Demographic      string `validate:"required"`
	LoanAmount       string `validate:"required,numeric"`
	LoanPurpose      string `validate:"required"`
	Description      string `validate:"required"`
	CreditScore      string `validate:"required,number"`
	AnnualIncome     string `validate:"required,numeric"`
	EmploymentStatus string `validate:"required"`
	LoanCriteria     string
}

// BuildApplication validates the form and converts it to an application.
// The applicant id gets a "+<timestamp>" suffix taken from now.
func BuildApplication(form FormInput, now time.Time) (types.Application, error) {
	form = trimForm(form)
	if err := validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return types.Application{}, errors.Errorf("invalid application form: check %s", strings.Join(fields, ", "))
		}
		return types.Application{}, errors.Wrap(err, "validate application form")
	}

	amount, err := strconv.ParseFloat(form.LoanAmount, 64)
	if err != nil {
		return types.Application{}, errors.Wrap(err, "loan amount")
	}
	income, err := strconv.ParseFloat(form.AnnualIncome, 64)
	if err != nil {
		return types.Application{}, errors.Wrap(err, "annual income")
	}
	score, err := strconv.Atoi(form.CreditScore)
	if err != nil {
		return types.Application{}, errors.Wrap(err, "credit score")
	}

	app := types.Application{
		ApplicantID:      form.ApplicantID + "+" + now.Format(ApplicantSuffixLayout),
		Demographic:      form.Demographic,
		LoanAmount:       amount,
		LoanPurpose:      form.LoanPurpose,
		Description:      form.Description,
		CreditScore:      score,
		AnnualIncome:     income,
		EmploymentStatus: form.EmploymentStatus,
		LoanStatus:       types.LoanStatusPending,
	}
	for _, c := range strings.Split(form.LoanCriteria, ",") {
		if c = strings.TrimSpace(c); c != "" {
			app.LoanCriteria = append(app.LoanCriteria, c)
		}
	}
	return app, nil
}

// Encode renders app as submission text. Pipeline fields are left out.
func Encode(app types.Application) (string, error) {
	submission := struct {
		ApplicantID      string   `json:"applicant_id"`
		Demographic      string   `json:"demographic"`
		LoanAmount       float64  `json:"loan_amount"`
		LoanPurpose      string   `json:"loan_purpose"`
		Description      string   `json:"description"`
		CreditScore      int      `json:"credit_score"`
		AnnualIncome     float64  `json:"annual_income"`
		EmploymentStatus string   `json:"employment_status"`
		LoanCriteria     []string `json:"loan_criteria"`
	}{
		ApplicantID:      app.ApplicantID,
		Demographic:      app.Demographic,
		LoanAmount:       app.LoanAmount,
		LoanPurpose:      app.LoanPurpose,
		Description:      app.Description,
		CreditScore:      app.CreditScore,
		AnnualIncome:     app.AnnualIncome,
		EmploymentStatus: app.EmploymentStatus,
		LoanCriteria:     append([]string{}, app.LoanCriteria...),
	}
	out, err := json.Marshal(submission)
	if err != nil {
		return "", errors.Wrap(err, "encode submission")
	}
	return string(out), nil
}

func trimForm(f FormInput) FormInput {
	f.ApplicantID = strings.TrimSpace(f.ApplicantID)
	f.Demographic = strings.TrimSpace(f.Demographic)
	f.LoanAmount = strings.TrimSpace(f.LoanAmount)
	f.LoanPurpose = strings.TrimSpace(f.LoanPurpose)
	f.Description = strings.TrimSpace(f.Description)
	f.CreditScore = strings.TrimSpace(f.CreditScore)
	f.AnnualIncome = strings.TrimSpace(f.AnnualIncome)
	f.EmploymentStatus = strings.TrimSpace(f.EmploymentStatus)
	return f
}
