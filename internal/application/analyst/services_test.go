package analyst

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-filecheck/internal/application"
	domain "github.com/bryanwahyu/automaton-filecheck/internal/domain/analyst"
	"github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

type stubExplainer struct {
	got string
	out string
	err error
}

func (s *stubExplainer) Explain(_ context.Context, document string) (string, error) {
	s.got = document
	return s.out, s.err
}

type stubAnalyses struct{ saved []*domain.Analysis }

func (s *stubAnalyses) Save(_ context.Context, a *domain.Analysis) error {
	s.saved = append(s.saved, a)
	return nil
}

func (s *stubAnalyses) Paginate(context.Context, int, int) ([]*domain.Analysis, error) {
	return s.saved, nil
}

func (s *stubAnalyses) LatestByClassification(context.Context, string) (*domain.Analysis, error) {
	return nil, nil
}

type stubClassifications struct {
	filecheck.Repository
	rec *filecheck.Classification
}

func (s stubClassifications) Get(_ context.Context, id filecheck.ClassificationID) (*filecheck.Classification, error) {
	if s.rec == nil || s.rec.ID != id {
		return nil, filecheck.ErrNotFound
	}
	return s.rec, nil
}

type frozenClock struct{ application.SystemClock }

func (frozenClock) Now() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

func TestExplainAndStore(t *testing.T) {
	explainer := &stubExplainer{out: `{"summary":"clean"}`}
	repo := &stubAnalyses{}
	rec := &filecheck.Classification{ID: "c-1", Key: "report.rtf", Status: filecheck.StatusClean}
	svc := &Service{Client: explainer, Repo: repo, Classifications: stubClassifications{rec: rec}, Clock: frozenClock{}}

	a, err := svc.ExplainAndStore(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", a.ClassificationID)
	assert.Equal(t, `{"summary":"clean"}`, a.Result)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, 2026, a.CreatedAt.Year())
	assert.True(t, strings.Contains(explainer.got, `"key": "report.rtf"`))
	assert.Len(t, repo.saved, 1)

	list, err := svc.ListAnalyses(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestExplainAndStore_unknownClassification(t *testing.T) {
	svc := &Service{Client: &stubExplainer{}, Classifications: stubClassifications{}, Clock: frozenClock{}}
	_, err := svc.ExplainAndStore(context.Background(), "nope")
	assert.True(t, errors.Is(err, filecheck.ErrNotFound))
}

func TestExplainAndStore_quota(t *testing.T) {
	rec := &filecheck.Classification{ID: "c-1"}
	svc := &Service{
		Client:          &stubExplainer{err: domain.ErrQuotaExceeded},
		Classifications: stubClassifications{rec: rec},
		Clock:           frozenClock{},
	}
	_, err := svc.ExplainAndStore(context.Background(), "c-1")
	assert.True(t, errors.Is(err, domain.ErrQuotaExceeded))
}
