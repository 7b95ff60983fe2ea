package approval

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/davidahmann/lendguard/internal/logging"
	"github.com/davidahmann/lendguard/internal/store"
)

type Poster interface {
	PostEscalation(ctx context.Context, channel string, message EscalationMessage) error
}

// ProcessOutboxDue delivers due pending escalations and records the outcome
// on each outbox entry. Failed deliveries are rescheduled with exponential
// backoff; undecodable payloads are marked sent so they are not retried.
func ProcessOutboxDue(ctx context.Context, outbox store.Outbox, poster Poster, now time.Time, limit int) (int, error) {
	if outbox == nil {
		return 0, errors.New("missing outbox")
	}
	if poster == nil {
		return 0, nil
	}
	if limit <= 0 {
		limit = 50
	}

	due, err := outbox.ListOutboxDue(ctx, now.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return 0, err
	}

	stamp := now.UTC().Format(time.RFC3339)
	processed := 0
	for _, rec := range due {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if rec.Status != store.OutboxStatusPending {
			continue
		}

		var message EscalationMessage
		if err := json.Unmarshal(rec.MessageJSON, &message); err != nil {
			markSent(&rec, stamp, "invalid message_json: "+err.Error())
		} else if err := poster.PostEscalation(ctx, rec.Channel, message); err != nil {
			rec.NextAttemptAt = now.UTC().Add(nextAttempt(rec.AttemptCount)).Format(time.RFC3339)
			rec.AttemptCount++
			msg := err.Error()
			rec.LastError = &msg
			rec.UpdatedAt = stamp
		} else {
			markSent(&rec, stamp, "")
		}

		if err := outbox.PutOutbox(ctx, rec); err != nil {
			return processed, err
		}
		processed++
	}

	return processed, nil
}

func markSent(rec *store.OutboxRecord, stamp, lastError string) {
	rec.Status = store.OutboxStatusSent
	rec.SentAt = &stamp
	rec.UpdatedAt = stamp
	if lastError != "" {
		rec.LastError = &lastError
	}
}

func nextAttempt(attemptCount int) time.Duration {
	// 5s, 10s, 20s, 40s, ... capped at 5m.
	base := 5 * time.Second
	if attemptCount <= 0 {
		return base
	}
	if attemptCount > 16 {
		return 5 * time.Minute
	}
	return min(base<<attemptCount, 5*time.Minute)
}

// RunOutboxWorker polls and processes due escalations until ctx is cancelled.
func RunOutboxWorker(ctx context.Context, outbox store.Outbox, poster Poster, pollInterval time.Duration) {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	logger := logging.FromContext(ctx)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := ProcessOutboxDue(ctx, outbox, poster, now, 25)
			if err != nil && ctx.Err() == nil {
				logger.ErrorContext(ctx, "escalation outbox pass failed", "error", err)
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "escalation outbox pass", "processed", n)
			}
		}
	}
}
