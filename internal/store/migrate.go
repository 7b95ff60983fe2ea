package store

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

type DBDriver string

const (
	DBSQLite   DBDriver = "sqlite"
	DBPostgres DBDriver = "postgres"
)

const migrationsTable = "lendguard_schema_migrations"

// Builder returns a squirrel statement builder using the driver's placeholder style.
func (d DBDriver) Builder() sq.StatementBuilderType {
	if d == DBPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func (d DBDriver) Validate() error {
	switch d {
	case DBSQLite, DBPostgres:
		return nil
	default:
		return errors.Errorf("unsupported db driver: %s", d)
	}
}

// Migrate applies the embedded migrations for driver in lexical order. Each
// file runs in its own transaction together with its bookkeeping row, so a
// failed file leaves no partial record behind.
func Migrate(db *sql.DB, driver DBDriver) error {
	if db == nil {
		return errors.New("missing db")
	}
	if err := driver.Validate(); err != nil {
		return err
	}

	appliedAtType := "TEXT"
	if driver == DBPostgres {
		appliedAtType = "TIMESTAMPTZ"
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationsTable + ` (
  version TEXT PRIMARY KEY,
  applied_at ` + appliedAtType + ` NOT NULL
)`); err != nil {
		return errors.Wrap(err, "create migrations table")
	}

	files, err := migrationFiles(driver)
	if err != nil {
		return err
	}

	for _, file := range files {
		if err := applyMigration(db, driver, file); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(db *sql.DB, driver DBDriver, file string) error {
	version := strings.TrimSuffix(path.Base(file), ".sql")
	contents, err := migrationsFS.ReadFile(file)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var appliedAt any = time.Now().UTC()
	if driver == DBSQLite {
		appliedAt = time.Now().UTC().Format(time.RFC3339)
	}
	res, err := driver.Builder().
		Insert(migrationsTable).
		Columns("version", "applied_at").
		Values(version, appliedAt).
		Suffix("ON CONFLICT(version) DO NOTHING").
		RunWith(tx).
		Exec()
	if err != nil {
		return errors.Wrapf(err, "record migration %s", version)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return nil
	}

	if _, err := tx.Exec(string(contents)); err != nil {
		return errors.Wrapf(err, "apply migration %s", version)
	}
	return tx.Commit()
}

func migrationFiles(driver DBDriver) ([]string, error) {
	dir := path.Join("migrations", string(driver))
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		out = append(out, path.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
