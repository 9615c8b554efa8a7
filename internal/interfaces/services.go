package interfaces

import (
	"context"
	"time"

	"cryptofolio/internal/ledger"
	"cryptofolio/internal/models"
)

// RecordTransactionRequest carries a validated buy/sell event into the
// transaction service.
type RecordTransactionRequest struct {
	Username     string                 `json:"username"`
	PortfolioID  string                 `json:"portfolio_id"`
	Symbol       string                 `json:"symbol"`
	Type         models.TransactionType `json:"type"`
	Quantity     float64                `json:"quantity"`
	PricePerUnit float64                `json:"price_per_unit"`
	Fee          float64                `json:"fee"`
	Exchange     string                 `json:"exchange"`
	Notes        string                 `json:"notes"`
	Timestamp    time.Time              `json:"timestamp"`
}

// TransactionService records and reverses buy/sell events, keeping the
// position ledger consistent with the transaction history.
type TransactionService interface {
	// Record validates the event, rejects sells exceeding the held
	// quantity before anything is persisted, then saves the transaction
	// and the mutated position.
	Record(ctx context.Context, req RecordTransactionRequest) (*models.Transaction, error)

	// Delete removes a transaction and reverses its effect on the position.
	Delete(ctx context.Context, id, username string) error

	List(ctx context.Context, portfolioID string, limit int) ([]*models.Transaction, error)
}

// PortfolioService manages portfolios and derives valuations.
type PortfolioService interface {
	Create(ctx context.Context, username, name, description string) (*models.Portfolio, error)
	Get(ctx context.Context, id string) (*models.Portfolio, error)
	ListByUser(ctx context.Context, username string) ([]*models.Portfolio, error)
	Update(ctx context.Context, id, name, description string) (*models.Portfolio, error)

	// Delete removes the portfolio and cascades to its positions and
	// transactions.
	Delete(ctx context.Context, id string) error

	// Holdings returns open positions enriched with catalog data and
	// latest quotes.
	Holdings(ctx context.Context, id string) ([]*models.HoldingView, error)

	// Summary aggregates open positions into portfolio totals.
	Summary(ctx context.Context, id string) (*models.PortfolioSummary, error)

	// RenderAllocationChart renders the portfolio allocation as a PNG.
	RenderAllocationChart(ctx context.Context, id string) ([]byte, error)

	// ExportTransactionsCSV renders the portfolio's transaction history
	// as CSV.
	ExportTransactionsCSV(ctx context.Context, id string) ([]byte, error)
}

// PriceService maintains the price store and asset catalog from the quote
// provider, and serves latest-price lookups to the aggregation layer.
type PriceService interface {
	// RefreshPrices fetches quotes for all tracked symbols and persists
	// price points. Returns the number of symbols updated.
	RefreshPrices(ctx context.Context) (int, error)

	// SyncCatalog upserts the top market listings into the asset catalog.
	// Returns the number of assets written.
	SyncCatalog(ctx context.Context, limit int) (int, error)

	// GetQuote returns the latest quote for a symbol, from cache or store.
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)

	// PriceLookup returns a point-in-time lookup over the latest stored
	// prices, suitable for ledger.Aggregate.
	PriceLookup(ctx context.Context) (ledger.PriceLookup, error)
}

// AlertService manages price alerts and evaluates them against prices.
type AlertService interface {
	Create(ctx context.Context, username, symbol string, condition models.AlertCondition, targetPrice float64) (*models.Alert, error)
	ListByUser(ctx context.Context, username string, activeOnly bool) ([]*models.Alert, error)
	SetActive(ctx context.Context, id, username string, active bool) (*models.Alert, error)
	Delete(ctx context.Context, id, username string) error

	// Evaluate checks all active alerts against latest prices and marks
	// the triggered ones. Returns the number triggered.
	Evaluate(ctx context.Context) (int, error)
}

// WatchlistService manages per-user watchlists.
type WatchlistService interface {
	Add(ctx context.Context, username, symbol string) (*models.WatchlistEntry, error)
	Remove(ctx context.Context, username, symbol string) error
	List(ctx context.Context, username string) ([]*models.WatchlistItem, error)
}
