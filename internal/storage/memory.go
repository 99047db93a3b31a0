package storage

import (
	"context"
	"sort"
	"sync"

	"symgen/internal/model"
)

type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]model.RunRecord
	history map[string][]float64
	stats   map[string][]model.GenerationStats
}

// NewMemoryStore returns a ready-to-use store; Init is optional for this
// backend and only resets it to empty.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.reset()
	return s
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return nil
}

func (s *MemoryStore) reset() {
	s.runs = make(map[string]model.RunRecord)
	s.history = make(map[string][]float64)
	s.stats = make(map[string][]model.GenerationStats)
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

// ListRuns returns the archived runs newest first.
func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC != runs[j].CreatedAtUTC {
			return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (s *MemoryStore) SaveFitnessHistory(_ context.Context, runID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[runID] = append([]float64(nil), history...)
	return nil
}

func (s *MemoryStore) GetFitnessHistory(_ context.Context, runID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]float64(nil), history...), true, nil
}

func (s *MemoryStore) SaveGenerationStats(_ context.Context, runID string, stats []model.GenerationStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.GenerationStats, len(stats))
	copy(copied, stats)
	s.stats[runID] = copied
	return nil
}

func (s *MemoryStore) GetGenerationStats(_ context.Context, runID string) ([]model.GenerationStats, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.stats[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.GenerationStats, len(stats))
	copy(copied, stats)
	return copied, true, nil
}
