// Package store persists violation records and answers candidate queries for
// duplicate detection.
package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/models"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/platform/sentinel"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/requestcontext"
)

// InMemoryStore keeps records in a map guarded by a RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]models.ViolationRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[uuid.UUID]models.ViolationRecord),
	}
}

// Create stores a new record, assigning an ID when it has none.
func (s *InMemoryStore) Create(ctx context.Context, record *models.ViolationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if _, ok := s.records[record.ID]; ok {
		return sentinel.ErrConflict
	}
	now := requestcontext.Now(ctx)
	record.CreatedAt = now
	record.UpdatedAt = now
	s.records[record.ID] = record.Clone()
	return nil
}

// Update replaces an existing record. CreatedAt and CreatedBy are kept.
func (s *InMemoryStore) Update(ctx context.Context, record *models.ViolationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[record.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.CreatedAt = current.CreatedAt
	record.CreatedBy = current.CreatedBy
	record.UpdatedAt = requestcontext.Now(ctx)
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*models.ViolationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := r.Clone()
	return &out, nil
}

// FindCandidates returns the newest records matching q.
func (s *InMemoryStore) FindCandidates(_ context.Context, q models.CandidateQuery) ([]models.ViolationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name := strings.ToLower(strings.TrimSpace(q.LocationName))
	var out []models.ViolationRecord
	for _, r := range s.records {
		if r.Type != q.Type || r.Date.Before(q.From) || r.Date.After(q.To) {
			continue
		}
		if name != "" &&
			!strings.Contains(strings.ToLower(r.Location.Name.En), name) &&
			!strings.Contains(strings.ToLower(r.Location.Name.Ar), name) {
			continue
		}
		out = append(out, r.Clone())
	}

	slices.SortFunc(out, func(a, b models.ViolationRecord) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
