package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davidahmann/lendguard/pkg/types"
)

func TestJSONFileStoreMissingAndCorruptReadEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "loan_decisions.json")
	s := NewJSONFileStore(path)

	all, err := s.LoadAll(ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("missing file: err=%v len=%d", err, len(all))
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	all, err = s.LoadAll(ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("corrupt file: err=%v len=%d", err, len(all))
	}

	// Appending over a corrupt file starts a fresh array.
	if err := s.Append(ctx, types.Application{ApplicantID: "A1"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	all, _ = s.LoadAll(ctx)
	if len(all) != 1 {
		t.Fatalf("expected 1 record, got %d", len(all))
	}
}

func TestJSONFileStoreLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "loan_decisions.json")
	s := NewJSONFileStore(path)

	ethical := false
	app := types.Application{
		ApplicantID:   "101",
		Demographic:   "group_A",
		LoanStatus:    types.LoanStatusPending,
		RiskFlag:      "Bias likely",
		EthicsReview:  &types.EthicsReview{Ethical: &ethical, Reasons: []string{"Guideline 1"}},
		FinalDecision: types.DecisionRequiresReview,
	}
	if err := s.Append(ctx, app); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, app); err != nil {
		t.Fatalf("append duplicate: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(raw), "[\n    {\n        \"applicant_id\": \"101\"") {
		t.Fatalf("unexpected layout:\n%s", raw)
	}
	var generic []map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil || len(generic) != 2 {
		t.Fatalf("expected a two-element array: err=%v len=%d", err, len(generic))
	}
	if _, ok := generic[0]["auditor_comments"]; ok {
		t.Fatalf("auditor_comments must be absent until an auditor acts")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestJSONFileStoreUpdateFirstMatch(t *testing.T) {
	ctx := context.Background()
	s := NewJSONFileStore(filepath.Join(t.TempDir(), "loan_decisions.json"))

	for _, id := range []string{"A1", "A2", "A1"} {
		if err := s.Append(ctx, types.Application{ApplicantID: id, FinalDecision: types.DecisionRequiresReview}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	updated, err := s.UpdateFinalDecision(ctx, "A1", types.DecisionRejected, "Auditor: no")
	if err != nil || !updated {
		t.Fatalf("update: updated=%v err=%v", updated, err)
	}
	all, _ := s.LoadAll(ctx)
	if all[0].FinalDecision != types.DecisionRejected || all[2].FinalDecision != types.DecisionRequiresReview {
		t.Fatalf("unexpected records after update: %+v", all)
	}

	got, ok, err := s.FindByApplicant(ctx, "A2")
	if err != nil || !ok || got.ApplicantID != "A2" {
		t.Fatalf("find: ok=%v err=%v", ok, err)
	}
	if updated, _ := s.UpdateFinalDecision(ctx, "nope", types.DecisionApproved, ""); updated {
		t.Fatalf("expected false for unknown applicant")
	}
}
