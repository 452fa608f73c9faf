package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/metrics"
)

const defaultUpdateRetries = 8

// GameStore keeps each game as one JSON document and serializes writers with
// optimistic locking (WATCH/MULTI). Layout:
//
//	game:{id}     game document
//	game:pin:{pin} game id, removed once the game is no longer active
type GameStore struct {
	client    *redis.Client
	retention time.Duration
	retries   int
	metrics   *metrics.Metrics
}

// NewGameStore returns a store whose documents expire retention after their
// last write. A zero retention keeps them forever.
func NewGameStore(client *redis.Client, retention time.Duration, m *metrics.Metrics) *GameStore {
	return &GameStore{
		client:    client,
		retention: retention,
		retries:   defaultUpdateRetries,
		metrics:   m,
	}
}

func (s *GameStore) Create(ctx context.Context, g *domain.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game: %w", err)
	}
	created, err := s.client.SetNX(ctx, gameKey(g.ID), data, s.retention).Result()
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	if !created {
		return fmt.Errorf("game %s already exists", g.ID)
	}
	if g.PIN != "" && g.Status == domain.GameActive {
		if err := s.client.Set(ctx, pinKey(g.PIN), g.ID, s.retention).Err(); err != nil {
			return fmt.Errorf("index pin: %w", err)
		}
	}
	return nil
}

func (s *GameStore) LoadGameByID(ctx context.Context, id string) (*domain.Game, error) {
	data, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	return decodeGame(data)
}

func (s *GameStore) FindGameIDByPIN(ctx context.Context, pin string) (string, error) {
	id, err := s.client.Get(ctx, pinKey(pin)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrGameNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find pin: %w", err)
	}
	return id, nil
}

// Update loads the game, applies fn and writes it back only if nobody else
// wrote in between. fn may run several times; it must not have side effects
// outside the game.
func (s *GameStore) Update(ctx context.Context, id string, fn func(*domain.Game) error) (*domain.Game, error) {
	key := gameKey(id)
	var updated *domain.Game

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrGameNotFound
		}
		if err != nil {
			return fmt.Errorf("load game: %w", err)
		}
		g, err := decodeGame(data)
		if err != nil {
			return err
		}
		if err := fn(g); err != nil {
			return err
		}
		encoded, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("encode game: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.retention)
			if g.PIN != "" && g.Status != domain.GameActive {
				pipe.Del(ctx, pinKey(g.PIN))
			}
			return nil
		})
		if err != nil {
			return err
		}
		updated = g
		return nil
	}

	for attempt := 0; attempt < s.retries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		s.metrics.UpdateConflict()
	}
	return nil, domain.ErrConcurrentUpdate
}

func decodeGame(data []byte) (*domain.Game, error) {
	var g domain.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}
	return &g, nil
}

func gameKey(id string) string {
	return "game:" + id
}

func pinKey(pin string) string {
	return "game:pin:" + pin
}
