package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS file_classifications (
  id            TEXT        PRIMARY KEY,
  bucket        TEXT        NOT NULL,
  object_key    TEXT        NOT NULL,
  sha256        TEXT        NOT NULL DEFAULT '',
  status        TEXT        NOT NULL,
  is_malware    BOOLEAN     NULL,
  decided_by    TEXT        NULL,
  score         INTEGER     NULL,
  results_json  JSONB       NOT NULL,
  action        TEXT        NOT NULL,
  error_message TEXT        NOT NULL,
  started_at    TIMESTAMPTZ NOT NULL,
  duration_ms   BIGINT      NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_file_classifications_started_at ON file_classifications (started_at);
CREATE TABLE IF NOT EXISTS classification_analyses (
  id                TEXT        PRIMARY KEY,
  classification_id TEXT        NOT NULL,
  result_json       JSONB       NOT NULL,
  created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_classification_analyses_cid ON classification_analyses (classification_id, created_at);`

// Connect opens a pooled connection and pings it.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the tables used by the repositories.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}
