package store

import (
	"context"

	"github.com/davidahmann/lendguard/pkg/types"
)

// Store persists decided applications. Records are never deleted; updates
// apply to the first record (in append order) with the given applicant_id.
type Store interface {
	Append(ctx context.Context, app types.Application) error
	LoadAll(ctx context.Context) ([]types.Application, error)
	FindByApplicant(ctx context.Context, applicantID string) (types.Application, bool, error)
	UpdateFinalDecision(ctx context.Context, applicantID, decision, comments string) (bool, error)
}

// Outbox holds escalation notifications awaiting delivery.
type Outbox interface {
	PutOutbox(ctx context.Context, rec OutboxRecord) error
	GetOutbox(ctx context.Context, notificationID string) (OutboxRecord, bool, error)
	ListOutboxDue(ctx context.Context, now string, limit int) ([]OutboxRecord, error)
}

const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
)

type OutboxRecord struct {
	NotificationID string
	ApplicantID    string
	Channel        string
	MessageJSON    []byte
	Status         string // pending | sent
	AttemptCount   int
	NextAttemptAt  string
	LastError      *string
	SentAt         *string
	CreatedAt      string
	UpdatedAt      string
}
