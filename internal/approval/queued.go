package approval

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/davidahmann/lendguard/internal/store"
)

// QueuedChannel records the escalation in an outbox for asynchronous review
// and never overrides synchronously.
type QueuedChannel struct {
	outbox  store.Outbox
	channel string
	now     func() time.Time
}

func NewQueuedChannel(outbox store.Outbox, channel string) *QueuedChannel {
	return &QueuedChannel{outbox: outbox, channel: channel, now: time.Now}
}

func (c *QueuedChannel) RequestOverride(ctx context.Context, req Request) (bool, error) {
	now := c.now().UTC()
	body, err := json.Marshal(newEscalationMessage(req, now))
	if err != nil {
		return false, errors.Wrap(err, "encode escalation message")
	}

	ts := now.Format(time.RFC3339)
	rec := store.OutboxRecord{
		NotificationID: "escalation:" + uuid.NewString(),
		ApplicantID:    req.ApplicantID,
		Channel:        c.channel,
		MessageJSON:    body,
		Status:         store.OutboxStatusPending,
		NextAttemptAt:  ts,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	if err := c.outbox.PutOutbox(ctx, rec); err != nil {
		return false, errors.Wrap(err, "enqueue escalation")
	}
	return false, nil
}
