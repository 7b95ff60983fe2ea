package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/davidahmann/lendguard/internal/store"
	"github.com/davidahmann/lendguard/pkg/types"
)

const (
	applicationsTable = "applications"
	outboxTable       = "escalation_outbox"
)

var outboxColumns = []string{
	"notification_id", "applicant_id", "channel", "message_json", "status", "attempt_count",
	"next_attempt_at", "last_error", "sent_at", "created_at", "updated_at",
}

// Store implements store.Store and store.Outbox on SQLite or Postgres.
type Store struct {
	db     *sql.DB
	driver store.DBDriver
	now    func() time.Time
}

// Open connects, pings and migrates the database for driver.
func Open(driver store.DBDriver, dsn string) (*Store, error) {
	switch driver {
	case store.DBSQLite:
		return OpenSQLite(dsn)
	case store.DBPostgres:
		return OpenPostgres(dsn)
	default:
		return nil, errors.Errorf("unsupported db driver: %s", driver)
	}
}

func OpenSQLite(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	return open(db, store.DBSQLite)
}

func OpenPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return open(db, store.DBPostgres)
}

func open(db *sql.DB, driver store.DBDriver) (*Store, error) {
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping %s", driver)
	}
	if err := store.Migrate(db, driver); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "migrate %s", driver)
	}
	return New(db, driver), nil
}

func New(db *sql.DB, driver store.DBDriver) *Store {
	return &Store{db: db, driver: driver, now: time.Now}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) builder() sq.StatementBuilderType {
	return s.driver.Builder()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) Append(ctx context.Context, app types.Application) error {
	body, err := json.Marshal(app)
	if err != nil {
		return errors.Wrap(err, "encode application")
	}
	now := s.timestamp()
	_, err = s.builder().
		Insert(applicationsTable).
		Columns("applicant_id", "final_decision", "record_json", "created_at", "updated_at").
		Values(app.ApplicantID, app.FinalDecision, string(body), now, now).
		RunWith(s.db).
		ExecContext(ctx)
	return errors.Wrap(err, "insert application")
}

func (s *Store) LoadAll(ctx context.Context) ([]types.Application, error) {
	rows, err := s.builder().
		Select("record_json").
		From(applicationsTable).
		OrderBy("seq ASC").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "select applications")
	}
	defer rows.Close()

	out := []types.Application{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var app types.Application
		if err := json.Unmarshal([]byte(body), &app); err != nil {
			return nil, errors.Wrap(err, "decode application")
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

func (s *Store) FindByApplicant(ctx context.Context, applicantID string) (types.Application, bool, error) {
	_, app, ok, err := s.firstByApplicant(ctx, s.db, applicantID, false)
	return app, ok, err
}

func (s *Store) UpdateFinalDecision(ctx context.Context, applicantID, decision, comments string) (bool, error) {
	updated := false
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		seq, app, ok, err := s.firstByApplicant(ctx, tx, applicantID, true)
		if err != nil || !ok {
			return err
		}

		app.FinalDecision = decision
		app.AuditorComments = comments
		body, err := json.Marshal(app)
		if err != nil {
			return errors.Wrap(err, "encode application")
		}

		_, err = s.builder().
			Update(applicationsTable).
			Set("final_decision", decision).
			Set("record_json", string(body)).
			Set("updated_at", s.timestamp()).
			Where(sq.Eq{"seq": seq}).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return errors.Wrap(err, "update application")
		}
		updated = true
		return nil
	})
	return updated, err
}

func (s *Store) firstByApplicant(ctx context.Context, runner sq.BaseRunner, applicantID string, forUpdate bool) (int64, types.Application, bool, error) {
	query := s.builder().
		Select("seq", "record_json").
		From(applicationsTable).
		Where(sq.Eq{"applicant_id": applicantID}).
		OrderBy("seq ASC").
		Limit(1)
	if forUpdate && s.driver == store.DBPostgres {
		query = query.Suffix("FOR UPDATE")
	}

	var (
		seq  int64
		body string
	)
	err := query.RunWith(runner).QueryRowContext(ctx).Scan(&seq, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, types.Application{}, false, nil
	}
	if err != nil {
		return 0, types.Application{}, false, errors.Wrap(err, "select application")
	}

	var app types.Application
	if err := json.Unmarshal([]byte(body), &app); err != nil {
		return 0, types.Application{}, false, errors.Wrap(err, "decode application")
	}
	return seq, app, true, nil
}
