package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"live-quiz-service/internal/domain"
)

// GameStore is an in-memory implementation of app.GameRepository. Games are
// kept encoded so callers never share a document with the store.
type GameStore struct {
	mu    sync.Mutex
	games map[string][]byte
	pins  map[string]string // pin -> game id, active games only
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string][]byte),
		pins:  make(map[string]string),
	}
}

func (s *GameStore) Create(_ context.Context, g *domain.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[g.ID]; ok {
		return fmt.Errorf("game %s already exists", g.ID)
	}
	s.games[g.ID] = data
	if g.PIN != "" && g.Status == domain.GameActive {
		s.pins[g.PIN] = g.ID
	}
	return nil
}

func (s *GameStore) LoadGameByID(_ context.Context, id string) (*domain.Game, error) {
	s.mu.Lock()
	data, ok := s.games[id]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return decodeGame(data)
}

func (s *GameStore) FindGameIDByPIN(_ context.Context, pin string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.pins[pin]
	if !ok {
		return "", domain.ErrGameNotFound
	}
	return id, nil
}

// Update serializes every mutation of the store. fn sees a private copy;
// nothing is saved when it fails.
func (s *GameStore) Update(_ context.Context, id string, fn func(*domain.Game) error) (*domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.games[id]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	g, err := decodeGame(data)
	if err != nil {
		return nil, err
	}
	if err := fn(g); err != nil {
		return nil, err
	}
	updated, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode game: %w", err)
	}
	s.games[id] = updated
	if g.Status != domain.GameActive && s.pins[g.PIN] == id {
		delete(s.pins, g.PIN)
	}
	return g, nil
}

func decodeGame(data []byte) (*domain.Game, error) {
	var g domain.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}
	return &g, nil
}
