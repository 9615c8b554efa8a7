// Package interfaces defines service contracts for Cryptofolio
package interfaces

import (
	"context"
	"errors"
	"time"

	"cryptofolio/internal/models"
)

// ErrNotFound is wrapped by stores when a record does not exist, so callers
// can distinguish absence from storage failure with errors.Is.
var ErrNotFound = errors.New("not found")

// StorageManager coordinates all storage backends
type StorageManager interface {
	UserStore() UserStore
	PortfolioStore() PortfolioStore
	PositionStore() PositionStore
	TransactionStore() TransactionStore
	AssetStore() AssetStore
	PriceStore() PriceStore
	WatchlistStore() WatchlistStore
	AlertStore() AlertStore

	Close() error
}

// UserStore manages user accounts.
type UserStore interface {
	Get(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, username string) error
	List(ctx context.Context) ([]string, error)
}

// PortfolioStore manages portfolio metadata.
type PortfolioStore interface {
	Get(ctx context.Context, id string) (*models.Portfolio, error)
	ListByUser(ctx context.Context, username string) ([]*models.Portfolio, error)
	Save(ctx context.Context, portfolio *models.Portfolio) error
	Delete(ctx context.Context, id string) error
}

// PositionStore manages holding state keyed by (portfolio, asset).
// Save is an atomic upsert of the whole record, which provides the
// read-modify-write serialization the ledger assumes for a single position.
type PositionStore interface {
	Get(ctx context.Context, portfolioID, assetID string) (*models.Position, error)
	Save(ctx context.Context, position *models.Position) error
	ListByPortfolio(ctx context.Context, portfolioID string) ([]*models.Position, error)
	DeleteByPortfolio(ctx context.Context, portfolioID string) (int, error)
}

// TransactionStore manages the transaction history.
type TransactionStore interface {
	Get(ctx context.Context, id string) (*models.Transaction, error)
	Save(ctx context.Context, tx *models.Transaction) error
	Delete(ctx context.Context, id string) error
	ListByPortfolio(ctx context.Context, portfolioID string, limit int) ([]*models.Transaction, error)
	ListByUser(ctx context.Context, username string, limit int) ([]*models.Transaction, error)
	DeleteByPortfolio(ctx context.Context, portfolioID string) (int, error)
}

// AssetStore manages the cryptocurrency catalog.
type AssetStore interface {
	Get(ctx context.Context, id string) (*models.Asset, error)
	GetBySymbol(ctx context.Context, symbol string) (*models.Asset, error)
	Save(ctx context.Context, asset *models.Asset) error
	List(ctx context.Context, activeOnly bool) ([]*models.Asset, error)
	Search(ctx context.Context, term string) ([]*models.Asset, error)
}

// PriceStore manages persisted price observations.
type PriceStore interface {
	SaveBatch(ctx context.Context, points []*models.PricePoint) error
	Latest(ctx context.Context, assetID string) (*models.PricePoint, error)
	LatestAll(ctx context.Context) (map[string]*models.PricePoint, error)
	History(ctx context.Context, assetID string, since time.Time) ([]*models.PricePoint, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// WatchlistStore manages per-user watchlist entries.
type WatchlistStore interface {
	Add(ctx context.Context, entry *models.WatchlistEntry) error
	Remove(ctx context.Context, username, assetID string) error
	ListByUser(ctx context.Context, username string) ([]*models.WatchlistEntry, error)
}

// AlertStore manages price alerts.
type AlertStore interface {
	Get(ctx context.Context, id string) (*models.Alert, error)
	Save(ctx context.Context, alert *models.Alert) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, username string, activeOnly bool) ([]*models.Alert, error)
	ListActive(ctx context.Context) ([]*models.Alert, error)
}
