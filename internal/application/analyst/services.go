package analyst

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/bryanwahyu/automaton-filecheck/internal/application"
	domain "github.com/bryanwahyu/automaton-filecheck/internal/domain/analyst"
	"github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

// Service explains classifications with an AI model and keeps the answers.
type Service struct {
	Client          domain.Explainer
	Repo            domain.Repository
	Classifications filecheck.Repository
	Clock           application.Clock
}

// ExplainAndStore loads the classification, asks for an explanation of its
// escalation path and stores the result.
func (s *Service) ExplainAndStore(ctx context.Context, id filecheck.ClassificationID) (*domain.Analysis, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("ai explainer is not configured")
	}
	if s.Classifications == nil {
		return nil, filecheck.ErrNotFound
	}
	c, err := s.Classifications.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	doc, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode classification: %w", err)
	}
	out, err := s.Client.Explain(ctx, string(doc))
	if err != nil {
		return nil, err
	}

	a := &domain.Analysis{
		ID:               domain.AnalysisID(uuid.New().String()),
		ClassificationID: string(id),
		Result:           out,
		CreatedAt:        s.Clock.Now(),
	}
	if s.Repo != nil {
		if err := s.Repo.Save(ctx, a); err != nil {
			return nil, fmt.Errorf("save analysis: %w", err)
		}
	}
	return a, nil
}

// ListAnalyses pages through stored explanations, newest first.
func (s *Service) ListAnalyses(ctx context.Context, page, pageSize int) ([]*domain.Analysis, error) {
	if s.Repo == nil {
		return []*domain.Analysis{}, nil
	}
	return s.Repo.Paginate(ctx, page, pageSize)
}
