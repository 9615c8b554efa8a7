// Package price maintains the price store and asset catalog from the quote
// provider and serves latest-price lookups to the valuation layer.
package price

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/ledger"
	"cryptofolio/internal/models"
)

const (
	quoteCacheTTL  = 60 * time.Second
	cachePurgeTick = 5 * time.Minute
)

// ErrNoQuote is returned when neither the provider nor the store has a price
// for the requested symbol.
var ErrNoQuote = errors.New("no quote available")

// Service implements interfaces.PriceService.
type Service struct {
	storage interfaces.StorageManager
	client  interfaces.MarketClient
	logger  *common.Logger
	cache   *gocache.Cache
}

var _ interfaces.PriceService = (*Service)(nil)

// NewService creates a new price service.
func NewService(storage interfaces.StorageManager, client interfaces.MarketClient, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		client:  client,
		logger:  logger,
		cache:   gocache.New(quoteCacheTTL, cachePurgeTick),
	}
}

// RefreshPrices fetches quotes for every tracked symbol (held in any open
// position, watched by any user, or alerted on) and persists them as price
// points. Returns the number of symbols updated.
func (s *Service) RefreshPrices(ctx context.Context) (int, error) {
	symbols, err := s.trackedSymbols(ctx)
	if err != nil {
		return 0, err
	}
	if len(symbols) == 0 {
		return 0, nil
	}

	quotes, err := s.client.GetQuotes(ctx, symbols)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch quotes: %w", err)
	}

	now := time.Now().UTC()
	points := make([]*models.PricePoint, 0, len(quotes))
	for symbol, q := range quotes {
		s.cache.Set(models.AssetID(symbol), q, gocache.DefaultExpiration)
		points = append(points, &models.PricePoint{
			AssetID:   models.AssetID(symbol),
			Price:     q.Price,
			Volume24h: q.Volume24h,
			MarketCap: q.MarketCap,
			Source:    q.Source,
			Timestamp: now,
		})
	}
	if err := s.storage.PriceStore().SaveBatch(ctx, points); err != nil {
		return 0, fmt.Errorf("failed to persist price points: %w", err)
	}

	if missing := len(symbols) - len(points); missing > 0 {
		s.logger.Warn().Int("missing", missing).Int("updated", len(points)).Msg("Some tracked symbols returned no quote")
	} else {
		s.logger.Info().Int("updated", len(points)).Msg("Prices refreshed")
	}
	return len(points), nil
}

// SyncCatalog upserts the top market listings into the asset catalog.
func (s *Service) SyncCatalog(ctx context.Context, limit int) (int, error) {
	listings, err := s.client.GetListings(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch listings: %w", err)
	}

	now := time.Now().UTC()
	written := 0
	for _, l := range listings {
		id := models.AssetID(l.Symbol)
		asset := &models.Asset{
			ID:        id,
			Symbol:    l.Symbol,
			Name:      l.Name,
			SourceID:  l.SourceID,
			Rank:      l.Rank,
			Active:    true,
			UpdatedAt: now,
		}
		if existing, err := s.storage.AssetStore().Get(ctx, id); err == nil {
			asset.CreatedAt = existing.CreatedAt
			asset.LogoURL = existing.LogoURL
		} else {
			asset.CreatedAt = now
		}
		if err := s.storage.AssetStore().Save(ctx, asset); err != nil {
			return written, fmt.Errorf("failed to save asset %s: %w", id, err)
		}
		written++
	}

	s.logger.Info().Int("assets", written).Msg("Asset catalog synced")
	return written, nil
}

// GetQuote returns the latest quote for a symbol. Cache first, then the
// provider, then the price store as a stale fallback when the provider fails.
func (s *Service) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	assetID := models.AssetID(symbol)
	if assetID == "" {
		return nil, fmt.Errorf("symbol is required: %w", ledger.ErrInvalidInput)
	}
	// Providers key quote results by upper-case symbol; send the same form.
	sym := strings.ToUpper(assetID)

	if cached, ok := s.cache.Get(assetID); ok {
		q := cached.(models.Quote)
		return &q, nil
	}

	quotes, err := s.client.GetQuotes(ctx, []string{sym})
	if err == nil {
		if q, ok := quotes[sym]; ok {
			s.cache.Set(assetID, q, gocache.DefaultExpiration)
			return &q, nil
		}
	} else {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Quote fetch failed, falling back to stored price")
	}

	point, storeErr := s.storage.PriceStore().Latest(ctx, assetID)
	if storeErr != nil {
		if errors.Is(storeErr, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", symbol, ErrNoQuote)
		}
		return nil, storeErr
	}
	return &models.Quote{
		Symbol:      sym,
		Price:       point.Price,
		Volume24h:   point.Volume24h,
		MarketCap:   point.MarketCap,
		LastUpdated: point.Timestamp,
		Source:      point.Source,
	}, nil
}

// PriceLookup snapshots the latest stored prices into a pure lookup for
// ledger.Aggregate, so one valuation pass sees one consistent price set.
func (s *Service) PriceLookup(ctx context.Context) (ledger.PriceLookup, error) {
	latest, err := s.storage.PriceStore().LatestAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest prices: %w", err)
	}
	return func(assetID string) (float64, bool) {
		p, ok := latest[assetID]
		if !ok || p.Price <= 0 {
			return 0, false
		}
		return p.Price, true
	}, nil
}

// trackedSymbols collects the deduplicated upper-case symbols referenced by
// open positions, watchlists, and active alerts.
func (s *Service) trackedSymbols(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})

	usernames, err := s.storage.UserStore().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for _, username := range usernames {
		portfolios, err := s.storage.PortfolioStore().ListByUser(ctx, username)
		if err != nil {
			return nil, err
		}
		for _, pf := range portfolios {
			positions, err := s.storage.PositionStore().ListByPortfolio(ctx, pf.ID)
			if err != nil {
				return nil, err
			}
			for _, pos := range positions {
				if pos.IsOpen() {
					seen[pos.AssetID] = struct{}{}
				}
			}
		}

		entries, err := s.storage.WatchlistStore().ListByUser(ctx, username)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			seen[e.AssetID] = struct{}{}
		}
	}

	alerts, err := s.storage.AlertStore().ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range alerts {
		seen[a.AssetID] = struct{}{}
	}

	symbols := make([]string, 0, len(seen))
	for id := range seen {
		symbols = append(symbols, strings.ToUpper(id))
	}
	sort.Strings(symbols)
	return symbols, nil
}
