package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const schema = `
CREATE TABLE IF NOT EXISTS file_classifications (
  id            VARCHAR(64)  NOT NULL PRIMARY KEY,
  bucket        VARCHAR(255) NOT NULL,
  object_key    VARCHAR(1024) NOT NULL,
  sha256        CHAR(64)     NOT NULL DEFAULT '',
  status        VARCHAR(16)  NOT NULL,
  is_malware    BOOLEAN      NULL,
  decided_by    VARCHAR(16)  NULL,
  score         INT          NULL,
  results_json  JSON         NOT NULL,
  action        VARCHAR(16)  NOT NULL,
  error_message TEXT         NOT NULL,
  started_at    DATETIME(3)  NOT NULL,
  duration_ms   BIGINT       NOT NULL DEFAULT 0,
  KEY idx_started_at (started_at)
);
CREATE TABLE IF NOT EXISTS classification_analyses (
  id                VARCHAR(64) NOT NULL PRIMARY KEY,
  classification_id VARCHAR(64) NOT NULL,
  result_json       JSON        NOT NULL,
  created_at        DATETIME(3) NOT NULL,
  KEY idx_classification (classification_id, created_at)
);`

// Connect opens a pooled connection and pings it.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
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

// Migrate creates the tables used by the repositories. The DSN must allow multiStatements.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("mysql migrate: %w", err)
	}
	return nil
}
