package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:reportcoach.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/reportcoach?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS reviews (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  report_text TEXT NOT NULL DEFAULT '',
  feedback_text TEXT NOT NULL DEFAULT '',
  feedback_summary TEXT NOT NULL DEFAULT '',
  scores_json TEXT NOT NULL DEFAULT '',
  generated_via TEXT NOT NULL DEFAULT '',
  rating INTEGER,
  rating_note TEXT,
  status TEXT NOT NULL DEFAULT 'final',  -- draft/final
  source_name TEXT NOT NULL DEFAULT '',  -- original upload filename, if any
  submitted_at INTEGER NOT NULL,
  feedback_at INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reviews_user_feedback ON reviews(user_id, feedback_at DESC);

CREATE TABLE IF NOT EXISTS rubric_versions (
  id INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  created_by TEXT NOT NULL DEFAULT '',
  rubric_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS reviews (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  report_text TEXT NOT NULL DEFAULT '',
  feedback_text TEXT NOT NULL DEFAULT '',
  feedback_summary TEXT NOT NULL DEFAULT '',
  scores_json TEXT NOT NULL DEFAULT '',
  generated_via TEXT NOT NULL DEFAULT '',
  rating INTEGER,
  rating_note TEXT,
  status TEXT NOT NULL DEFAULT 'final',
  source_name TEXT NOT NULL DEFAULT '',
  submitted_at BIGINT NOT NULL,
  feedback_at BIGINT NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reviews_user_feedback ON reviews(user_id, feedback_at DESC);

CREATE TABLE IF NOT EXISTS rubric_versions (
  id BIGSERIAL PRIMARY KEY,
  created_by TEXT NOT NULL DEFAULT '',
  rubric_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

`
