package store

import (
	"context"
	"sort"
	"sync"

	"github.com/davidahmann/lendguard/pkg/types"
)

type InMemoryStore struct {
	mu sync.Mutex

	records []types.Application
	outbox  map[string]OutboxRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		outbox: make(map[string]OutboxRecord),
	}
}

func (s *InMemoryStore) Append(_ context.Context, app types.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, app.Clone())
	return nil
}

func (s *InMemoryStore) LoadAll(_ context.Context) ([]types.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Application, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (s *InMemoryStore) FindByApplicant(_ context.Context, applicantID string) (types.Application, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ApplicantID == applicantID {
			return rec.Clone(), true, nil
		}
	}
	return types.Application{}, false, nil
}

func (s *InMemoryStore) UpdateFinalDecision(_ context.Context, applicantID, decision, comments string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ApplicantID == applicantID {
			s.records[i].FinalDecision = decision
			s.records[i].AuditorComments = comments
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) PutOutbox(_ context.Context, rec OutboxRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox[rec.NotificationID] = rec
	return nil
}

func (s *InMemoryStore) GetOutbox(_ context.Context, notificationID string) (OutboxRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.outbox[notificationID]
	return rec, ok, nil
}

func (s *InMemoryStore) ListOutboxDue(_ context.Context, now string, limit int) ([]OutboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []OutboxRecord{}
	for _, rec := range s.outbox {
		if rec.Status != OutboxStatusPending {
			continue
		}
		if rec.NextAttemptAt > now {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt == out[j].CreatedAt {
			return out[i].NotificationID < out[j].NotificationID
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
