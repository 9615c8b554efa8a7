package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/models"
)

// PriceStore implements interfaces.PriceStore using SurrealDB.
//
// Observations are appended to price_point for history; the latest_price
// table keeps exactly one record per asset (upserted on every batch) so
// latest-price lookups never scan history.
type PriceStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewPriceStore creates a new PriceStore.
func NewPriceStore(db *surrealdb.DB, logger *common.Logger) *PriceStore {
	return &PriceStore{db: db, logger: logger}
}

func (s *PriceStore) SaveBatch(ctx context.Context, points []*models.PricePoint) error {
	for _, p := range points {
		if p.ID == "" {
			p.ID = fmt.Sprintf("%s_%d", p.AssetID, p.Timestamp.UnixNano())
		}

		// latest_price only moves forward in time; a batch replaying an
		// older observation must not regress it.
		sql := `UPSERT type::record('price_point', $id) CONTENT $point;
			LET $cur = (SELECT VALUE timestamp FROM ONLY type::record('latest_price', $asset_id));
			IF $cur == NONE OR $cur < $point.timestamp {
				UPSERT type::record('latest_price', $asset_id) CONTENT $point;
			};`
		vars := map[string]any{
			"id":       p.ID,
			"asset_id": p.AssetID,
			"point":    p,
		}
		if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
			return fmt.Errorf("failed to save price point for %s: %w", p.AssetID, err)
		}
	}
	return nil
}

func (s *PriceStore) Latest(ctx context.Context, assetID string) (*models.PricePoint, error) {
	p, err := surrealdb.Select[models.PricePoint](ctx, s.db, surrealmodels.NewRecordID("latest_price", assetID))
	if err != nil {
		return nil, fmt.Errorf("failed to select latest price: %w", err)
	}
	if p == nil || p.AssetID == "" {
		return nil, fmt.Errorf("latest price for %q: %w", assetID, interfaces.ErrNotFound)
	}
	return p, nil
}

func (s *PriceStore) LatestAll(ctx context.Context) (map[string]*models.PricePoint, error) {
	points, err := querySlice[models.PricePoint](ctx, s.db, "SELECT * FROM latest_price", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest prices: %w", err)
	}
	latest := make(map[string]*models.PricePoint, len(points))
	for _, p := range points {
		latest[p.AssetID] = p
	}
	return latest, nil
}

func (s *PriceStore) History(ctx context.Context, assetID string, since time.Time) ([]*models.PricePoint, error) {
	sql := `SELECT * FROM price_point
		WHERE asset_id = $asset_id AND timestamp >= $since
		ORDER BY timestamp ASC`
	vars := map[string]any{"asset_id": assetID, "since": since}
	points, err := querySlice[models.PricePoint](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	return points, nil
}

func (s *PriceStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	sql := "SELECT count() AS cnt FROM price_point WHERE timestamp < $cutoff GROUP ALL"
	vars := map[string]any{"cutoff": cutoff}

	count, err := queryCount(ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to count stale price points: %w", err)
	}

	if _, err := surrealdb.Query[any](ctx, s.db, "DELETE price_point WHERE timestamp < $cutoff", vars); err != nil {
		return 0, fmt.Errorf("failed to purge price points: %w", err)
	}
	return count, nil
}
