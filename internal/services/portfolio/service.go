// Package portfolio manages portfolios and derives holdings, summaries,
// charts, and exports from the position ledger.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/ledger"
	"cryptofolio/internal/models"
)

// ErrInvalidName is returned when a portfolio name is empty or too long.
var ErrInvalidName = errors.New("invalid portfolio name")

const maxNameLength = 100

// Service implements interfaces.PortfolioService.
type Service struct {
	storage interfaces.StorageManager
	prices  interfaces.PriceService
	logger  *common.Logger
}

var _ interfaces.PortfolioService = (*Service)(nil)

// NewService creates a new portfolio service.
func NewService(storage interfaces.StorageManager, prices interfaces.PriceService, logger *common.Logger) *Service {
	return &Service{storage: storage, prices: prices, logger: logger}
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// Create adds a new empty portfolio for the user.
func (s *Service) Create(ctx context.Context, username, name, description string) (*models.Portfolio, error) {
	name, err := validName(name)
	if err != nil {
		return nil, err
	}
	if _, err := s.storage.UserStore().Get(ctx, username); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pf := &models.Portfolio{
		ID:          uuid.NewString(),
		Username:    username,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.storage.PortfolioStore().Save(ctx, pf); err != nil {
		return nil, fmt.Errorf("failed to save portfolio: %w", err)
	}

	s.logger.Info().Str("portfolio_id", pf.ID).Str("username", username).Msg("Portfolio created")
	return pf, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Portfolio, error) {
	return s.storage.PortfolioStore().Get(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, username string) ([]*models.Portfolio, error) {
	return s.storage.PortfolioStore().ListByUser(ctx, username)
}

// Update renames a portfolio and/or replaces its description.
func (s *Service) Update(ctx context.Context, id, name, description string) (*models.Portfolio, error) {
	pf, err := s.storage.PortfolioStore().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		valid, err := validName(name)
		if err != nil {
			return nil, err
		}
		pf.Name = valid
	}
	pf.Description = strings.TrimSpace(description)
	pf.UpdatedAt = time.Now().UTC()

	if err := s.storage.PortfolioStore().Save(ctx, pf); err != nil {
		return nil, fmt.Errorf("failed to save portfolio: %w", err)
	}
	return pf, nil
}

// Delete removes the portfolio and cascades to its positions and
// transactions.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.storage.PortfolioStore().Get(ctx, id); err != nil {
		return err
	}

	positions, err := s.storage.PositionStore().DeleteByPortfolio(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete positions: %w", err)
	}
	transactions, err := s.storage.TransactionStore().DeleteByPortfolio(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	if err := s.storage.PortfolioStore().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}

	s.logger.Info().
		Str("portfolio_id", id).
		Int("positions", positions).
		Int("transactions", transactions).
		Msg("Portfolio deleted")
	return nil
}

// Holdings returns the portfolio's open positions enriched with catalog data
// and the latest stored prices. Positions without a quote are valued at zero
// with PriceKnown false rather than omitted.
func (s *Service) Holdings(ctx context.Context, id string) ([]*models.HoldingView, error) {
	if _, err := s.storage.PortfolioStore().Get(ctx, id); err != nil {
		return nil, err
	}
	positions, err := s.storage.PositionStore().ListByPortfolio(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	lookup, err := s.prices.PriceLookup(ctx)
	if err != nil {
		return nil, err
	}

	var views []*models.HoldingView
	var totalValue float64
	for _, pos := range positions {
		if !pos.IsOpen() {
			continue
		}
		price, known := lookup(pos.AssetID)
		v := ledger.Valuate(*pos, price, known)

		view := &models.HoldingView{
			PortfolioID:   pos.PortfolioID,
			AssetID:       pos.AssetID,
			Symbol:        strings.ToUpper(pos.AssetID),
			Quantity:      pos.Quantity,
			AverageCost:   pos.AverageCost,
			TotalInvested: pos.TotalInvested,
			CurrentPrice:  price,
			PriceKnown:    known,
			CurrentValue:  v.CurrentValue,
			ProfitLoss:    v.ProfitLoss,
			ProfitLossPct: v.ProfitLossPct,
			UpdatedAt:     pos.UpdatedAt,
		}
		if asset, err := s.storage.AssetStore().Get(ctx, pos.AssetID); err == nil {
			view.Symbol = asset.Symbol
			view.Name = asset.Name
			view.LogoURL = asset.LogoURL
		}
		views = append(views, view)
		totalValue += v.CurrentValue
	}

	for _, view := range views {
		if totalValue > ledger.Epsilon {
			view.WeightPct = view.CurrentValue / totalValue * 100
		}
	}
	return views, nil
}

// Summary aggregates open positions into portfolio totals.
func (s *Service) Summary(ctx context.Context, id string) (*models.PortfolioSummary, error) {
	pf, err := s.storage.PortfolioStore().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	positions, err := s.storage.PositionStore().ListByPortfolio(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	lookup, err := s.prices.PriceLookup(ctx)
	if err != nil {
		return nil, err
	}

	plain := make([]models.Position, 0, len(positions))
	var missing []string
	for _, pos := range positions {
		plain = append(plain, *pos)
		if pos.IsOpen() {
			if _, ok := lookup(pos.AssetID); !ok {
				missing = append(missing, strings.ToUpper(pos.AssetID))
			}
		}
	}

	totals := ledger.Aggregate(plain, lookup)
	return &models.PortfolioSummary{
		PortfolioID:   pf.ID,
		Name:          pf.Name,
		TotalValue:    totals.TotalValue,
		TotalInvested: totals.TotalInvested,
		ProfitLoss:    totals.ProfitLoss,
		ProfitLossPct: totals.ProfitLossPct,
		HoldingsCount: totals.Holdings,
		MissingQuotes: missing,
		PricedAt:      time.Now().UTC(),
	}, nil
}
