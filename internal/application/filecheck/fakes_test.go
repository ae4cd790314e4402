package filecheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	domain "github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

// fakeAnalyzer returns scripted scores and records which tiers were called.
type fakeAnalyzer struct {
	mu     sync.Mutex
	scores map[domain.Tier]int
	errs   map[domain.Tier]error
	calls  []domain.Tier
}

func newFakeAnalyzer(scores map[domain.Tier]int) *fakeAnalyzer {
	return &fakeAnalyzer{scores: scores, errs: map[domain.Tier]error{}}
}

func (f *fakeAnalyzer) result(tier domain.Tier) (domain.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, tier)
	if err := f.errs[tier]; err != nil {
		return domain.AnalysisResult{}, err
	}
	score, ok := f.scores[tier]
	if !ok {
		return domain.AnalysisResult{}, fmt.Errorf("unexpected %s call", tier)
	}
	raw, _ := json.Marshal(map[string]any{"report": map[string]int{"score": score}})
	return domain.AnalysisResult{Tier: tier, Score: score, RawPayload: raw}, nil
}

func (f *fakeAnalyzer) ReputationLookup(_ context.Context, _ string) (domain.AnalysisResult, error) {
	return f.result(domain.TierReputation)
}

func (f *fakeAnalyzer) StaticAnalysis(_ context.Context, _ string) (domain.AnalysisResult, error) {
	return f.result(domain.TierStatic)
}

func (f *fakeAnalyzer) DynamicAnalysis(_ context.Context, _ string) (domain.AnalysisResult, error) {
	return f.result(domain.TierDynamic)
}

func (f *fakeAnalyzer) called() []domain.Tier {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Tier(nil), f.calls...)
}

// fakeStore records storage operations.
type fakeStore struct {
	mu          sync.Mutex
	ops         []string
	content     []byte
	downloadErr error
	copyErr     error
	deleteErr   error
}

func (s *fakeStore) Download(_ context.Context, obj domain.ObjectRef, localPath string) error {
	s.record("download " + obj.Bucket + "/" + obj.Key)
	if s.downloadErr != nil {
		return s.downloadErr
	}
	return os.WriteFile(localPath, s.content, 0o600)
}

func (s *fakeStore) Copy(_ context.Context, src domain.ObjectRef, dstBucket string) error {
	s.record("copy " + src.Bucket + "/" + src.Key + " -> " + dstBucket)
	return s.copyErr
}

func (s *fakeStore) Delete(_ context.Context, obj domain.ObjectRef) error {
	s.record("delete " + obj.Bucket + "/" + obj.Key)
	return s.deleteErr
}

func (s *fakeStore) record(op string) {
	s.mu.Lock()
	s.ops = append(s.ops, op)
	s.mu.Unlock()
}

func (s *fakeStore) operations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

// memRepo keeps the last saved copy of every record.
type memRepo struct {
	mu    sync.Mutex
	saves int
	rows  map[domain.ClassificationID]domain.Classification
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[domain.ClassificationID]domain.Classification{}}
}

func (r *memRepo) Save(_ context.Context, c *domain.Classification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.rows[c.ID] = *c
	return nil
}

func (r *memRepo) Get(_ context.Context, id domain.ClassificationID) (*domain.Classification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *memRepo) Latest(_ context.Context, limit int) ([]*domain.Classification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Classification, 0, len(r.rows))
	for _, c := range r.rows {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) Summary(context.Context, int) (domain.Summary, error) {
	return domain.Summary{}, errors.New("not implemented")
}

// fixedClock advances one second per Now call.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func (c *fixedClock) Sleep(context.Context, time.Duration) error { return nil }
