package crypto

import "testing"

func BenchmarkCanonicalizeApplication(b *testing.B) {
	input := map[string]any{
		"applicant_id": "A-1001",
		"demographic":  "group_B",
		"loan_amount":  25000.0,
		"credit_score": 712,
		"loan_criteria": []any{
			"credit_score", "annual_income", "employment_status",
		},
		"ethics_review": map[string]any{"ethical": true, "reasons": []any{}},
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Canonicalize(input); err != nil {
			b.Fatalf("canonicalize: %v", err)
		}
	}
}
