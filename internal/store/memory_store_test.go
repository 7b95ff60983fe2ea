package store

import (
	"context"
	"testing"

	"github.com/davidahmann/lendguard/pkg/types"
)

func TestInMemoryStoreAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	ethical := true
	first := types.Application{
		ApplicantID:   "A1",
		Demographic:   "group_B",
		LoanCriteria:  []string{"credit_score"},
		EthicsReview:  &types.EthicsReview{Ethical: &ethical, Reasons: []string{}},
		FinalDecision: types.DecisionRequiresReview,
	}
	if err := s.Append(ctx, first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, types.Application{ApplicantID: "A1", FinalDecision: types.DecisionApproved}); err != nil {
		t.Fatalf("append duplicate: %v", err)
	}

	// Mutating the caller's copy must not reach the store.
	*first.EthicsReview.Ethical = false
	first.LoanCriteria[0] = "mutated"

	all, err := s.LoadAll(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("load all: err=%v len=%d", err, len(all))
	}
	if !*all[0].EthicsReview.Ethical || all[0].LoanCriteria[0] != "credit_score" {
		t.Fatalf("stored record aliased caller memory: %+v", all[0])
	}

	got, ok, err := s.FindByApplicant(ctx, "A1")
	if err != nil || !ok || got.FinalDecision != types.DecisionRequiresReview {
		t.Fatalf("find: ok=%v err=%v got=%+v", ok, err, got)
	}

	updated, err := s.UpdateFinalDecision(ctx, "A1", types.DecisionApproved, "Auditor: fine")
	if err != nil || !updated {
		t.Fatalf("update: updated=%v err=%v", updated, err)
	}
	all, _ = s.LoadAll(ctx)
	if all[0].FinalDecision != types.DecisionApproved || all[0].AuditorComments != "Auditor: fine" {
		t.Fatalf("first match not updated: %+v", all[0])
	}
	if all[1].AuditorComments != "" {
		t.Fatalf("only the first match should change: %+v", all[1])
	}

	if updated, _ := s.UpdateFinalDecision(ctx, "missing", types.DecisionApproved, ""); updated {
		t.Fatalf("expected no update for unknown applicant")
	}
	if _, ok, _ := s.FindByApplicant(ctx, "missing"); ok {
		t.Fatalf("expected not found")
	}
}

func TestInMemoryStoreOutbox(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	recs := []OutboxRecord{
		{NotificationID: "n2", ApplicantID: "A2", Status: OutboxStatusPending, NextAttemptAt: "2025-01-01T00:00:00Z", CreatedAt: "2025-01-01T00:00:02Z"},
		{NotificationID: "n1", ApplicantID: "A1", Status: OutboxStatusPending, NextAttemptAt: "2025-01-01T00:00:00Z", CreatedAt: "2025-01-01T00:00:01Z"},
		{NotificationID: "n3", ApplicantID: "A3", Status: OutboxStatusSent, NextAttemptAt: "2025-01-01T00:00:00Z", CreatedAt: "2025-01-01T00:00:00Z"},
		{NotificationID: "n4", ApplicantID: "A4", Status: OutboxStatusPending, NextAttemptAt: "2030-01-01T00:00:00Z", CreatedAt: "2025-01-01T00:00:00Z"},
	}
	for _, rec := range recs {
		if err := s.PutOutbox(ctx, rec); err != nil {
			t.Fatalf("put outbox: %v", err)
		}
	}

	due, err := s.ListOutboxDue(ctx, "2025-06-01T00:00:00Z", 10)
	if err != nil || len(due) != 2 || due[0].NotificationID != "n1" {
		t.Fatalf("list due mismatch: err=%v due=%+v", err, due)
	}
	due, _ = s.ListOutboxDue(ctx, "2025-06-01T00:00:00Z", 1)
	if len(due) != 1 {
		t.Fatalf("limit not applied: %+v", due)
	}

	if got, ok, err := s.GetOutbox(ctx, "n3"); err != nil || !ok || got.Status != OutboxStatusSent {
		t.Fatalf("get outbox mismatch: ok=%v err=%v got=%+v", ok, err, got)
	}
}
