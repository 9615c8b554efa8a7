// Package surrealdb provides SurrealDB-backed storage for Cryptofolio.
package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
)

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	userStore        *UserStore
	portfolioStore   *PortfolioStore
	positionStore    *PositionStore
	transactionStore *TransactionStore
	assetStore       *AssetStore
	priceStore       *PriceStore
	watchlistStore   *WatchlistStore
	alertStore       *AlertStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	m, err := newManagerWithDB(ctx, db, logger)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

// newManagerWithDB wires stores onto an already connected database.
// Split out so tests can inject a container-backed connection.
func newManagerWithDB(ctx context.Context, db *surrealdb.DB, logger *common.Logger) (*Manager, error) {
	// Define tables up front (SurrealDB v3 errors on querying non-existent tables)
	tables := []string{"user", "portfolio", "position", "txn", "asset", "price_point", "latest_price", "watchlist", "alert"}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	m := &Manager{
		db:     db,
		logger: logger,
	}

	m.userStore = NewUserStore(db, logger)
	m.portfolioStore = NewPortfolioStore(db, logger)
	m.positionStore = NewPositionStore(db, logger)
	m.transactionStore = NewTransactionStore(db, logger)
	m.assetStore = NewAssetStore(db, logger)
	m.priceStore = NewPriceStore(db, logger)
	m.watchlistStore = NewWatchlistStore(db, logger)
	m.alertStore = NewAlertStore(db, logger)

	return m, nil
}

func (m *Manager) UserStore() interfaces.UserStore {
	return m.userStore
}

func (m *Manager) PortfolioStore() interfaces.PortfolioStore {
	return m.portfolioStore
}

func (m *Manager) PositionStore() interfaces.PositionStore {
	return m.positionStore
}

func (m *Manager) TransactionStore() interfaces.TransactionStore {
	return m.transactionStore
}

func (m *Manager) AssetStore() interfaces.AssetStore {
	return m.assetStore
}

func (m *Manager) PriceStore() interfaces.PriceStore {
	return m.priceStore
}

func (m *Manager) WatchlistStore() interfaces.WatchlistStore {
	return m.watchlistStore
}

func (m *Manager) AlertStore() interfaces.AlertStore {
	return m.alertStore
}

// Close closes the underlying database connection.
func (m *Manager) Close() error {
	return m.db.Close(context.Background())
}
