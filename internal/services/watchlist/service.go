// Package watchlist manages per-user asset watchlists.
package watchlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/ledger"
	"cryptofolio/internal/models"
)

// Service implements interfaces.WatchlistService.
type Service struct {
	storage interfaces.StorageManager
	prices  interfaces.PriceService
	logger  *common.Logger
}

var _ interfaces.WatchlistService = (*Service)(nil)

// NewService creates a new watchlist service.
func NewService(storage interfaces.StorageManager, prices interfaces.PriceService, logger *common.Logger) *Service {
	return &Service{storage: storage, prices: prices, logger: logger}
}

// Add puts an asset on the user's watchlist. Adding an already-watched asset
// is a no-op that keeps the original added time.
func (s *Service) Add(ctx context.Context, username, symbol string) (*models.WatchlistEntry, error) {
	assetID := models.AssetID(symbol)
	if assetID == "" {
		return nil, fmt.Errorf("symbol is required: %w", ledger.ErrInvalidInput)
	}
	if _, err := s.storage.UserStore().Get(ctx, username); err != nil {
		return nil, err
	}

	existing, err := s.storage.WatchlistStore().ListByUser(ctx, username)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if e.AssetID == assetID {
			return e, nil
		}
	}

	entry := &models.WatchlistEntry{
		Username: username,
		AssetID:  assetID,
		AddedAt:  time.Now().UTC(),
	}
	if err := s.storage.WatchlistStore().Add(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to add watchlist entry: %w", err)
	}

	s.logger.Info().Str("username", username).Str("asset_id", assetID).Msg("Watchlist entry added")
	return entry, nil
}

func (s *Service) Remove(ctx context.Context, username, symbol string) error {
	assetID := models.AssetID(symbol)
	if assetID == "" {
		return fmt.Errorf("symbol is required: %w", ledger.ErrInvalidInput)
	}
	return s.storage.WatchlistStore().Remove(ctx, username, assetID)
}

// List returns the user's watchlist enriched with catalog names and the
// latest stored prices.
func (s *Service) List(ctx context.Context, username string) ([]*models.WatchlistItem, error) {
	entries, err := s.storage.WatchlistStore().ListByUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	lookup, err := s.prices.PriceLookup(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]*models.WatchlistItem, 0, len(entries))
	for _, e := range entries {
		item := &models.WatchlistItem{
			AssetID: e.AssetID,
			Symbol:  strings.ToUpper(e.AssetID),
			AddedAt: e.AddedAt,
		}
		if asset, err := s.storage.AssetStore().Get(ctx, e.AssetID); err == nil {
			item.Symbol = asset.Symbol
			item.Name = asset.Name
		}
		if price, ok := lookup(e.AssetID); ok {
			item.Price = price
			item.PriceKnown = true
			item.PercentChange24h = s.dayChange(ctx, e.AssetID, price)
		}
		items = append(items, item)
	}
	return items, nil
}

// dayChange derives a 24h percentage move from the oldest stored observation
// in the window. Returns 0 when there is no history to compare against.
func (s *Service) dayChange(ctx context.Context, assetID string, current float64) float64 {
	since := time.Now().UTC().Add(-24 * time.Hour)
	history, err := s.storage.PriceStore().History(ctx, assetID, since)
	if err != nil || len(history) == 0 {
		return 0
	}
	base := history[0].Price
	if base <= 0 {
		return 0
	}
	return (current - base) / base * 100
}
