package memory

import (
	"context"
	"sort"
	"sync"

	"defi-portfolio-lab/internal/domain"
	"defi-portfolio-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PortfolioRun
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{data: make(map[string]*domain.PortfolioRun)}
}

// Insert adds a completed run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, run *domain.PortfolioRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	runCopy := *run
	runCopy.Allocations = append([]domain.Allocation(nil), run.Allocations...)
	s.data[run.RunID] = &runCopy
	return nil
}

// GetByID retrieves a run by its ID.
func (s *RunStore) GetByID(_ context.Context, runID string) (*domain.PortfolioRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	runCopy := *run
	runCopy.Allocations = append([]domain.Allocation(nil), run.Allocations...)
	return &runCopy, nil
}

// List retrieves all runs ordered by created_at DESC.
func (s *RunStore) List(_ context.Context) ([]*domain.PortfolioRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PortfolioRun, 0, len(s.data))
	for _, run := range s.data {
		runCopy := *run
		runCopy.Allocations = append([]domain.Allocation(nil), run.Allocations...)
		result = append(result, &runCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAtMs != result[j].CreatedAtMs {
			return result[i].CreatedAtMs > result[j].CreatedAtMs
		}
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

var _ storage.RunStore = (*RunStore)(nil)
