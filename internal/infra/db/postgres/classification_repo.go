package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
	dbrow "github.com/bryanwahyu/automaton-filecheck/internal/infra/db"
)

type ClassificationRepository struct{ db *sql.DB }

var _ domain.Repository = (*ClassificationRepository)(nil)

func NewClassificationRepository(db *sql.DB) *ClassificationRepository {
	return &ClassificationRepository{db: db}
}

// Save insert/update a classification record
func (r *ClassificationRepository) Save(ctx context.Context, c *domain.Classification) error {
	const q = `
INSERT INTO file_classifications
(id, bucket, object_key, sha256, status, is_malware, decided_by, score,
 results_json, action, error_message, started_at, duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,
        $9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
 sha256 = EXCLUDED.sha256,
 status = EXCLUDED.status,
 is_malware = EXCLUDED.is_malware,
 decided_by = EXCLUDED.decided_by,
 score = EXCLUDED.score,
 results_json = EXCLUDED.results_json,
 action = EXCLUDED.action,
 error_message = EXCLUDED.error_message,
 duration_ms = EXCLUDED.duration_ms;`

	args, err := dbrow.ClassificationArgs(c)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}

// Get by ID
func (r *ClassificationRepository) Get(ctx context.Context, id domain.ClassificationID) (*domain.Classification, error) {
	q := `SELECT ` + dbrow.ClassificationColumns + `
FROM file_classifications WHERE id=$1 LIMIT 1;`
	return dbrow.ScanClassification(r.db.QueryRowContext(ctx, q, string(id)))
}

// Latest classifications, newest first
func (r *ClassificationRepository) Latest(ctx context.Context, limit int) ([]*domain.Classification, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + dbrow.ClassificationColumns + `
FROM file_classifications ORDER BY started_at DESC LIMIT $1;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Classification{}
	for rows.Next() {
		c, err := dbrow.ScanClassification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Summary counts classifications since N days
func (r *ClassificationRepository) Summary(ctx context.Context, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE status = 'malicious'),
       COUNT(*) FILTER (WHERE status = 'clean'),
       COUNT(*) FILTER (WHERE status = 'error')
FROM file_classifications
WHERE started_at >= $1;`
	var s domain.Summary
	if err := r.db.QueryRowContext(ctx, q, cut).Scan(&s.Total, &s.Malicious, &s.Clean, &s.Errors); err != nil {
		return domain.Summary{}, err
	}
	return s, nil
}
