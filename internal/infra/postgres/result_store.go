package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"live-quiz-service/internal/domain"
)

type gameResultRow struct {
	bun.BaseModel `bun:"table:game_results"`

	GameID  string            `bun:"game_id,pk"`
	Data    domain.GameResult `bun:"data,type:jsonb"`
	Created time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// ResultStore persists game results. A game's result is written once; later
// saves for the same game are ignored.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.GameResult) error {
	row := &gameResultRow{GameID: result.GameID, Data: result, Created: result.Created}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (game_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *ResultStore) GetResult(ctx context.Context, gameID string) (domain.GameResult, error) {
	row := new(gameResultRow)
	err := s.db.NewSelect().Model(row).Where("game_id = ?", gameID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GameResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.GameResult{}, fmt.Errorf("get result: %w", err)
	}
	return row.Data, nil
}
