// Package memory keeps audit records in process when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bryanwahyu/automaton-filecheck/internal/domain/analyst"
	"github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
	dbrow "github.com/bryanwahyu/automaton-filecheck/internal/infra/db"
)

// ClassificationRepository is a bounded in-memory filecheck.Repository.
// The oldest records are dropped once Capacity is reached.
type ClassificationRepository struct {
	mu       sync.RWMutex
	capacity int
	rows     map[filecheck.ClassificationID]filecheck.Classification
	order    []filecheck.ClassificationID
	now      func() time.Time
}

var _ filecheck.Repository = (*ClassificationRepository)(nil)

func NewClassificationRepository(capacity int) *ClassificationRepository {
	if capacity <= 0 {
		capacity = 1000
	}
	return &ClassificationRepository{
		capacity: capacity,
		rows:     make(map[filecheck.ClassificationID]filecheck.Classification),
		now:      time.Now,
	}
}

func (r *ClassificationRepository) Save(_ context.Context, c *filecheck.Classification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[c.ID]; !ok {
		r.order = append(r.order, c.ID)
		if len(r.order) > r.capacity {
			delete(r.rows, r.order[0])
			r.order = r.order[1:]
		}
	}
	cp := *c
	cp.Results = append([]filecheck.AnalysisResult(nil), c.Results...)
	if c.Verdict != nil {
		v := *c.Verdict
		cp.Verdict = &v
	}
	r.rows[c.ID] = cp
	return nil
}

func (r *ClassificationRepository) Get(_ context.Context, id filecheck.ClassificationID) (*filecheck.Classification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, filecheck.ErrNotFound
	}
	return &c, nil
}

func (r *ClassificationRepository) Latest(_ context.Context, limit int) ([]*filecheck.Classification, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.RLock()
	out := make([]*filecheck.Classification, 0, len(r.rows))
	for _, c := range r.rows {
		c := c
		out = append(out, &c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ClassificationRepository) Summary(_ context.Context, sinceDays int) (filecheck.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := r.now().AddDate(0, 0, -sinceDays)

	r.mu.RLock()
	defer r.mu.RUnlock()
	var s filecheck.Summary
	for _, c := range r.rows {
		if c.StartedAt.Before(cut) {
			continue
		}
		s.Total++
		switch c.Status {
		case filecheck.StatusMalicious:
			s.Malicious++
		case filecheck.StatusClean:
			s.Clean++
		case filecheck.StatusError:
			s.Errors++
		}
	}
	return s, nil
}

// AnalystRepository is an in-memory analyst.Repository.
type AnalystRepository struct {
	mu   sync.RWMutex
	rows []*analyst.Analysis
}

var _ analyst.Repository = (*AnalystRepository)(nil)

func NewAnalystRepository() *AnalystRepository { return &AnalystRepository{} }

func (r *AnalystRepository) Save(_ context.Context, a *analyst.Analysis) error {
	cp := *a
	r.mu.Lock()
	r.rows = append(r.rows, &cp)
	r.mu.Unlock()
	return nil
}

func (r *AnalystRepository) Paginate(_ context.Context, page, pageSize int) ([]*analyst.Analysis, error) {
	limit, offset := dbrow.PageOffset(page, pageSize)

	r.mu.RLock()
	sorted := append([]*analyst.Analysis(nil), r.rows...)
	r.mu.RUnlock()
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })

	if offset >= len(sorted) {
		return []*analyst.Analysis{}, nil
	}
	end := offset + limit
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[offset:end], nil
}

func (r *AnalystRepository) LatestByClassification(_ context.Context, classificationID string) (*analyst.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *analyst.Analysis
	for _, a := range r.rows {
		if a.ClassificationID == classificationID && (latest == nil || !a.CreatedAt.Before(latest.CreatedAt)) {
			latest = a
		}
	}
	return latest, nil
}
