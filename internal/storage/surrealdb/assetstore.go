package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/models"
)

// AssetStore implements interfaces.AssetStore using SurrealDB.
type AssetStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(db *surrealdb.DB, logger *common.Logger) *AssetStore {
	return &AssetStore{db: db, logger: logger}
}

func (s *AssetStore) Get(ctx context.Context, id string) (*models.Asset, error) {
	asset, err := surrealdb.Select[models.Asset](ctx, s.db, surrealmodels.NewRecordID("asset", id))
	if err != nil {
		return nil, fmt.Errorf("failed to select asset: %w", err)
	}
	if asset == nil || asset.ID == "" {
		return nil, fmt.Errorf("asset %q: %w", id, interfaces.ErrNotFound)
	}
	return asset, nil
}

func (s *AssetStore) GetBySymbol(ctx context.Context, symbol string) (*models.Asset, error) {
	return s.Get(ctx, models.AssetID(symbol))
}

func (s *AssetStore) Save(ctx context.Context, asset *models.Asset) error {
	sql := "UPSERT type::record('asset', $id) CONTENT $asset"
	vars := map[string]any{"id": asset.ID, "asset": asset}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if _, err := surrealdb.Query[[]models.Asset](ctx, s.db, sql, vars); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("failed to save asset after retries: %w", lastErr)
}

func (s *AssetStore) List(ctx context.Context, activeOnly bool) ([]*models.Asset, error) {
	sql := "SELECT * FROM asset ORDER BY rank ASC"
	if activeOnly {
		sql = "SELECT * FROM asset WHERE active = true ORDER BY rank ASC"
	}
	assets, err := querySlice[models.Asset](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}

func (s *AssetStore) Search(ctx context.Context, term string) ([]*models.Asset, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}
	sql := `SELECT * FROM asset
		WHERE string::contains(string::lowercase(symbol), $term)
		   OR string::contains(string::lowercase(name), $term)
		ORDER BY rank ASC LIMIT 25`
	assets, err := querySlice[models.Asset](ctx, s.db, sql, map[string]any{"term": term})
	if err != nil {
		return nil, fmt.Errorf("failed to search assets: %w", err)
	}
	return assets, nil
}
