package analyst

import (
	"context"
	"errors"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// Explainer turns a classification audit document into a JSON explanation.
type Explainer interface {
	Explain(ctx context.Context, document string) (string, error)
}

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Paginate(ctx context.Context, page, pageSize int) ([]*Analysis, error)
	LatestByClassification(ctx context.Context, classificationID string) (*Analysis, error)
}
