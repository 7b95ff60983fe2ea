package sqlstore

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/davidahmann/lendguard/internal/store"
)

func (s *Store) PutOutbox(ctx context.Context, rec store.OutboxRecord) error {
	_, err := s.builder().
		Insert(outboxTable).
		Columns(outboxColumns...).
		Values(rec.NotificationID, rec.ApplicantID, rec.Channel, string(rec.MessageJSON), rec.Status, rec.AttemptCount,
			rec.NextAttemptAt, rec.LastError, rec.SentAt, rec.CreatedAt, rec.UpdatedAt).
		Suffix(`ON CONFLICT(notification_id) DO UPDATE SET
  status = excluded.status,
  attempt_count = excluded.attempt_count,
  next_attempt_at = excluded.next_attempt_at,
  last_error = excluded.last_error,
  sent_at = excluded.sent_at,
  updated_at = excluded.updated_at`).
		RunWith(s.db).
		ExecContext(ctx)
	return errors.Wrap(err, "upsert outbox record")
}

func (s *Store) GetOutbox(ctx context.Context, notificationID string) (store.OutboxRecord, bool, error) {
	row := s.builder().
		Select(outboxColumns...).
		From(outboxTable).
		Where(sq.Eq{"notification_id": notificationID}).
		RunWith(s.db).
		QueryRowContext(ctx)

	rec, err := scanOutbox(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.OutboxRecord{}, false, nil
	}
	if err != nil {
		return store.OutboxRecord{}, false, errors.Wrap(err, "select outbox record")
	}
	return rec, true, nil
}

func (s *Store) ListOutboxDue(ctx context.Context, now string, limit int) ([]store.OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.builder().
		Select(outboxColumns...).
		From(outboxTable).
		Where(sq.Eq{"status": store.OutboxStatusPending}).
		Where(sq.LtOrEq{"next_attempt_at": now}).
		OrderBy("created_at ASC", "notification_id ASC").
		Limit(uint64(limit)).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "select due outbox records")
	}
	defer rows.Close()

	out := []store.OutboxRecord{}
	for rows.Next() {
		rec, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanOutbox(row sq.RowScanner) (store.OutboxRecord, error) {
	var (
		rec store.OutboxRecord
		msg string
	)
	err := row.Scan(&rec.NotificationID, &rec.ApplicantID, &rec.Channel, &msg, &rec.Status, &rec.AttemptCount,
		&rec.NextAttemptAt, &rec.LastError, &rec.SentAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return store.OutboxRecord{}, err
	}
	rec.MessageJSON = []byte(msg)
	return rec, nil
}
