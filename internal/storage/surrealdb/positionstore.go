package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/models"
)

// PositionStore implements interfaces.PositionStore using SurrealDB.
// Positions are keyed by a composite (portfolio, asset) record id, so Save
// is a single atomic upsert per position record.
type PositionStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(db *surrealdb.DB, logger *common.Logger) *PositionStore {
	return &PositionStore{db: db, logger: logger}
}

func positionID(portfolioID, assetID string) string {
	return portfolioID + "_" + assetID
}

func (s *PositionStore) Get(ctx context.Context, portfolioID, assetID string) (*models.Position, error) {
	rid := surrealmodels.NewRecordID("position", positionID(portfolioID, assetID))
	pos, err := surrealdb.Select[models.Position](ctx, s.db, rid)
	if err != nil {
		return nil, fmt.Errorf("failed to select position: %w", err)
	}
	if pos == nil || pos.PortfolioID == "" {
		return nil, fmt.Errorf("position %s/%s: %w", portfolioID, assetID, interfaces.ErrNotFound)
	}
	return pos, nil
}

func (s *PositionStore) Save(ctx context.Context, position *models.Position) error {
	sql := "UPSERT type::record('position', $id) CONTENT $position"
	vars := map[string]any{
		"id":       positionID(position.PortfolioID, position.AssetID),
		"position": position,
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if _, err := surrealdb.Query[[]models.Position](ctx, s.db, sql, vars); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("failed to save position after retries: %w", lastErr)
}

func (s *PositionStore) ListByPortfolio(ctx context.Context, portfolioID string) ([]*models.Position, error) {
	sql := "SELECT * FROM position WHERE portfolio_id = $portfolio_id ORDER BY total_invested DESC"
	positions, err := querySlice[models.Position](ctx, s.db, sql, map[string]any{"portfolio_id": portfolioID})
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return positions, nil
}

func (s *PositionStore) DeleteByPortfolio(ctx context.Context, portfolioID string) (int, error) {
	sql := "SELECT count() AS cnt FROM position WHERE portfolio_id = $portfolio_id GROUP ALL"
	vars := map[string]any{"portfolio_id": portfolioID}

	count, err := queryCount(ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to count positions: %w", err)
	}

	if _, err := surrealdb.Query[any](ctx, s.db, "DELETE position WHERE portfolio_id = $portfolio_id", vars); err != nil {
		return 0, fmt.Errorf("failed to delete positions: %w", err)
	}
	return count, nil
}
