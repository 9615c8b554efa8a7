package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"cryptofolio/internal/common"
	"cryptofolio/internal/models"
)

// WatchlistStore implements interfaces.WatchlistStore using SurrealDB.
type WatchlistStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewWatchlistStore creates a new WatchlistStore.
func NewWatchlistStore(db *surrealdb.DB, logger *common.Logger) *WatchlistStore {
	return &WatchlistStore{db: db, logger: logger}
}

func watchlistID(username, assetID string) string {
	return username + "_" + assetID
}

func (s *WatchlistStore) Add(ctx context.Context, entry *models.WatchlistEntry) error {
	sql := "UPSERT type::record('watchlist', $id) CONTENT $entry"
	vars := map[string]any{
		"id":    watchlistID(entry.Username, entry.AssetID),
		"entry": entry,
	}
	if _, err := surrealdb.Query[[]models.WatchlistEntry](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to add watchlist entry: %w", err)
	}
	return nil
}

func (s *WatchlistStore) Remove(ctx context.Context, username, assetID string) error {
	rid := surrealmodels.NewRecordID("watchlist", watchlistID(username, assetID))
	if _, err := surrealdb.Delete[models.WatchlistEntry](ctx, s.db, rid); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to remove watchlist entry: %w", err)
	}
	return nil
}

func (s *WatchlistStore) ListByUser(ctx context.Context, username string) ([]*models.WatchlistEntry, error) {
	sql := "SELECT * FROM watchlist WHERE username = $username ORDER BY added_at ASC"
	entries, err := querySlice[models.WatchlistEntry](ctx, s.db, sql, map[string]any{"username": username})
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	return entries, nil
}
