package types

const (
	DecisionApproved       = "approved"
	DecisionRequiresReview = "requires further review"
	DecisionRejected       = "rejected"
)

const LoanStatusPending = "pending"

type Application struct {
	ApplicantID      string            `json:"applicant_id"`
	Demographic      string            `json:"demographic"`
	LoanAmount       float64           `json:"loan_amount,omitempty"`
	AnnualIncome     float64           `json:"annual_income,omitempty"`
	CreditScore      int               `json:"credit_score,omitempty"`
	LoanPurpose      string            `json:"loan_purpose,omitempty"`
	Description      string            `json:"description,omitempty"`
	EmploymentStatus string            `json:"employment_status,omitempty"`
	LoanCriteria     []string          `json:"loan_criteria,omitempty"`
	LoanStatus       string            `json:"loan_status"`
	RiskFlag         string            `json:"risk_flag"`
	EthicsReview     *EthicsReview     `json:"ethics_review,omitempty"`
	ComplianceReport *ComplianceReport `json:"compliance_report,omitempty"`
	FinalDecision    string            `json:"final_decision,omitempty"`
	AuditorComments  string            `json:"auditor_comments,omitempty"`
}

// EthicsReview carries a tri-state verdict: a nil Ethical means inconclusive.
type EthicsReview struct {
	Ethical *bool    `json:"ethical"`
	Reasons []string `json:"reasons"`
}

// Approves reports whether the review concluded the application is ethical.
func (r EthicsReview) Approves() bool {
	return r.Ethical != nil && *r.Ethical
}

type ComplianceReport struct {
	IsCompliant             bool     `json:"is_compliant"`
	NonCompliantRegulations []string `json:"non_compliant_regulations"`
	Reasons                 []string `json:"reasons"`
}

// ComplianceDecision is the payload submitted to the compliance audit.
type ComplianceDecision struct {
	DecisionID  string   `json:"decision_id"`
	ApplicantID string   `json:"applicant_id"`
	Decision    string   `json:"decision"`
	Reason      string   `json:"reason"`
	Criteria    []string `json:"criteria"`
	Digest      string   `json:"-"`
}

// Clone returns a deep copy so stored records never alias caller memory.
func (a Application) Clone() Application {
	out := a
	if a.LoanCriteria != nil {
		out.LoanCriteria = append([]string(nil), a.LoanCriteria...)
	}
	if a.EthicsReview != nil {
		review := *a.EthicsReview
		if review.Ethical != nil {
			v := *review.Ethical
			review.Ethical = &v
		}
		review.Reasons = cloneStrings(review.Reasons)
		out.EthicsReview = &review
	}
	if a.ComplianceReport != nil {
		report := *a.ComplianceReport
		report.NonCompliantRegulations = cloneStrings(report.NonCompliantRegulations)
		report.Reasons = cloneStrings(report.Reasons)
		out.ComplianceReport = &report
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}
