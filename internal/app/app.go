// Package app wires configuration, storage, clients, and services into a
// running application.
package app

import (
	"fmt"

	"cryptofolio/internal/auth"
	"cryptofolio/internal/clients/coinmarketcap"
	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/services/alert"
	"cryptofolio/internal/services/portfolio"
	"cryptofolio/internal/services/price"
	"cryptofolio/internal/services/transaction"
	"cryptofolio/internal/services/watchlist"
	surrealstore "cryptofolio/internal/storage/surrealdb"
)

// App holds the assembled application components.
type App struct {
	Config  *common.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager
	Tokens  *auth.TokenManager

	Transactions interfaces.TransactionService
	Portfolios   interfaces.PortfolioService
	Prices       interfaces.PriceService
	Alerts       interfaces.AlertService
	Watchlists   interfaces.WatchlistService

	Scheduler *Scheduler
}

// New assembles the application from configuration. The caller owns the
// returned App and must Close it.
func New(config *common.Config, logger *common.Logger) (*App, error) {
	storage, err := surrealstore.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return build(config, logger, storage, nil), nil
}

// NewWithStorage assembles the application over a caller-supplied storage
// backend. Used by the dev mode and tests.
func NewWithStorage(config *common.Config, logger *common.Logger, storage interfaces.StorageManager) *App {
	return build(config, logger, storage, nil)
}

// NewWithDependencies additionally overrides the market client. Tests use it
// to avoid calling the real quote provider.
func NewWithDependencies(config *common.Config, logger *common.Logger, storage interfaces.StorageManager, client interfaces.MarketClient) *App {
	return build(config, logger, storage, client)
}

func build(config *common.Config, logger *common.Logger, storage interfaces.StorageManager, client interfaces.MarketClient) *App {
	if client == nil {
		cmc := config.Clients.CoinMarketCap
		client = coinmarketcap.NewClient(cmc.APIKey,
			coinmarketcap.WithBaseURL(cmc.BaseURL),
			coinmarketcap.WithRateLimit(cmc.RateLimit),
			coinmarketcap.WithTimeout(cmc.GetTimeout()),
			coinmarketcap.WithLogger(logger),
		)
	}

	prices := price.NewService(storage, client, logger)

	app := &App{
		Config:       config,
		Logger:       logger,
		Storage:      storage,
		Tokens:       auth.NewTokenManager(config.Auth.JWTSecret, config.Auth.GetTokenExpiry()),
		Transactions: transaction.NewService(storage, logger),
		Portfolios:   portfolio.NewService(storage, prices, logger),
		Prices:       prices,
		Alerts:       alert.NewService(storage, prices, logger),
		Watchlists:   watchlist.NewService(storage, prices, logger),
	}
	app.Scheduler = NewScheduler(app.Prices, app.Alerts, logger, config.Scheduler.GetInterval())
	return app
}

// Close releases application resources.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	return a.Storage.Close()
}
