package memory

import (
	"context"
	"sync"

	"live-quiz-service/internal/domain"
)

// ResultStore keeps game results in memory. The first result saved for a
// game wins.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.GameResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.GameResult)}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.GameResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[result.GameID]; !ok {
		s.results[result.GameID] = result
	}
	return nil
}

func (s *ResultStore) GetResult(_ context.Context, gameID string) (domain.GameResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[gameID]
	if !ok {
		return domain.GameResult{}, domain.ErrResultNotFound
	}
	return result, nil
}
