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

// PortfolioStore implements interfaces.PortfolioStore using SurrealDB.
type PortfolioStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewPortfolioStore creates a new PortfolioStore.
func NewPortfolioStore(db *surrealdb.DB, logger *common.Logger) *PortfolioStore {
	return &PortfolioStore{db: db, logger: logger}
}

func (s *PortfolioStore) Get(ctx context.Context, id string) (*models.Portfolio, error) {
	p, err := surrealdb.Select[models.Portfolio](ctx, s.db, surrealmodels.NewRecordID("portfolio", id))
	if err != nil {
		return nil, fmt.Errorf("failed to select portfolio: %w", err)
	}
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("portfolio %q: %w", id, interfaces.ErrNotFound)
	}
	return p, nil
}

func (s *PortfolioStore) ListByUser(ctx context.Context, username string) ([]*models.Portfolio, error) {
	sql := "SELECT * FROM portfolio WHERE username = $username ORDER BY created_at DESC"
	portfolios, err := querySlice[models.Portfolio](ctx, s.db, sql, map[string]any{"username": username})
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	return portfolios, nil
}

func (s *PortfolioStore) Save(ctx context.Context, portfolio *models.Portfolio) error {
	sql := "UPSERT type::record('portfolio', $id) CONTENT $portfolio"
	vars := map[string]any{"id": portfolio.ID, "portfolio": portfolio}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if _, err := surrealdb.Query[[]models.Portfolio](ctx, s.db, sql, vars); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("failed to save portfolio after retries: %w", lastErr)
}

func (s *PortfolioStore) Delete(ctx context.Context, id string) error {
	_, err := surrealdb.Delete[models.Portfolio](ctx, s.db, surrealmodels.NewRecordID("portfolio", id))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	return nil
}
