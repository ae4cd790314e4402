package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/automaton-filecheck/internal/domain/analyst"
	dbrow "github.com/bryanwahyu/automaton-filecheck/internal/infra/db"
)

type AnalystRepository struct {
	db *sql.DB
}

var _ domain.Repository = (*AnalystRepository)(nil)

func NewAnalystRepository(db *sql.DB) *AnalystRepository {
	return &AnalystRepository{db: db}
}

// Save inserts or updates an analysis record
func (r *AnalystRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO classification_analyses
  (id, classification_id, result_json, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET
  classification_id=EXCLUDED.classification_id,
  result_json=EXCLUDED.result_json;
`
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, string(a.ID), dbrow.StringOrDash(a.ClassificationID), dbrow.JSONOrEmpty(a.Result), createdAt)
	return err
}

// Paginate returns a page of analysis records ordered by created_at desc
func (r *AnalystRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Analysis, error) {
	limit, offset := dbrow.PageOffset(page, pageSize)
	const q = `
SELECT id, classification_id, result_json, created_at
FROM classification_analyses
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;
`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Analysis{}
	for rows.Next() {
		var a domain.Analysis
		if err := rows.Scan(&a.ID, &a.ClassificationID, &a.Result, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// LatestByClassification returns the latest analysis for a classification, nil when none
func (r *AnalystRepository) LatestByClassification(ctx context.Context, classificationID string) (*domain.Analysis, error) {
	const q = `
SELECT id, classification_id, result_json, created_at
FROM classification_analyses
WHERE classification_id=$1
ORDER BY created_at DESC, id DESC
LIMIT 1;`
	var a domain.Analysis
	err := r.db.QueryRowContext(ctx, q, classificationID).Scan(&a.ID, &a.ClassificationID, &a.Result, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
