// Package transaction records buy/sell events and keeps positions consistent
// with the transaction history.
package transaction

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

// ErrForbidden is returned when a user tries to act on another user's record.
var ErrForbidden = errors.New("forbidden")

// Service implements interfaces.TransactionService.
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

var _ interfaces.TransactionService = (*Service)(nil)

// NewService creates a new transaction service.
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{storage: storage, logger: logger}
}

// Record validates the event against the current position, rejects oversells
// before anything is persisted, then saves the transaction followed by the
// mutated position.
func (s *Service) Record(ctx context.Context, req interfaces.RecordTransactionRequest) (*models.Transaction, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required: %w", ledger.ErrInvalidInput)
	}
	if req.PortfolioID == "" {
		return nil, fmt.Errorf("portfolio_id is required: %w", ledger.ErrInvalidInput)
	}
	if req.Fee < 0 {
		return nil, fmt.Errorf("fee must not be negative: %w", ledger.ErrInvalidInput)
	}

	portfolio, err := s.storage.PortfolioStore().Get(ctx, req.PortfolioID)
	if err != nil {
		return nil, err
	}
	if req.Username != "" && portfolio.Username != req.Username {
		return nil, fmt.Errorf("portfolio %s: %w", req.PortfolioID, ErrForbidden)
	}

	assetID := models.AssetID(symbol)
	pos, err := s.loadPosition(ctx, req.PortfolioID, assetID)
	if err != nil {
		return nil, err
	}

	updated, err := ledger.Apply(*pos, req.Type, req.Quantity, req.PricePerUnit)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ts := req.Timestamp
	if ts.IsZero() {
		ts = now
	}

	tx := &models.Transaction{
		ID:           uuid.NewString(),
		Username:     portfolio.Username,
		PortfolioID:  req.PortfolioID,
		AssetID:      assetID,
		Type:         req.Type,
		Quantity:     req.Quantity,
		PricePerUnit: req.PricePerUnit,
		Fee:          req.Fee,
		Exchange:     req.Exchange,
		Notes:        req.Notes,
		Timestamp:    ts,
		CreatedAt:    now,
	}
	if req.Type == models.TransactionSell {
		// Realized gain is computed against the average cost at time of
		// sale, which Apply leaves unchanged on the position.
		tx.RealizedGain = ledger.RealizedGain(*pos, req.Quantity, req.PricePerUnit)
	}

	if err := s.storage.TransactionStore().Save(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	updated.UpdatedAt = now
	if err := s.storage.PositionStore().Save(ctx, &updated); err != nil {
		// Roll the history entry back so a stray transaction does not
		// disagree with the position record.
		if delErr := s.storage.TransactionStore().Delete(ctx, tx.ID); delErr != nil {
			s.logger.Error().Err(delErr).Str("transaction_id", tx.ID).Msg("Failed to roll back transaction after position save failure")
		}
		return nil, fmt.Errorf("failed to save position: %w", err)
	}

	s.logger.Info().
		Str("portfolio_id", req.PortfolioID).
		Str("asset_id", assetID).
		Str("type", string(req.Type)).
		Float64("quantity", req.Quantity).
		Float64("price", req.PricePerUnit).
		Msg("Transaction recorded")

	return tx, nil
}

// Delete removes a transaction and reverses its effect on the position.
// Reversing a buy that would push the position negative fails with
// ErrInsufficientBalance and leaves both records untouched.
func (s *Service) Delete(ctx context.Context, id, username string) error {
	tx, err := s.storage.TransactionStore().Get(ctx, id)
	if err != nil {
		return err
	}
	if username != "" && tx.Username != username {
		return fmt.Errorf("transaction %s: %w", id, ErrForbidden)
	}

	pos, err := s.loadPosition(ctx, tx.PortfolioID, tx.AssetID)
	if err != nil {
		return err
	}

	updated, err := ledger.Reverse(*pos, tx.Type, tx.Quantity, tx.PricePerUnit)
	if err != nil {
		return err
	}

	updated.UpdatedAt = time.Now().UTC()
	if err := s.storage.PositionStore().Save(ctx, &updated); err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	if err := s.storage.TransactionStore().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	s.logger.Info().
		Str("transaction_id", id).
		Str("portfolio_id", tx.PortfolioID).
		Str("asset_id", tx.AssetID).
		Msg("Transaction reversed")

	return nil
}

// List returns the portfolio's transaction history, newest first.
func (s *Service) List(ctx context.Context, portfolioID string, limit int) ([]*models.Transaction, error) {
	return s.storage.TransactionStore().ListByPortfolio(ctx, portfolioID, limit)
}

// loadPosition returns the stored position or a zero-value one for a pair
// that has never traded.
func (s *Service) loadPosition(ctx context.Context, portfolioID, assetID string) (*models.Position, error) {
	pos, err := s.storage.PositionStore().Get(ctx, portfolioID, assetID)
	if err == nil {
		return pos, nil
	}
	if errors.Is(err, interfaces.ErrNotFound) {
		return &models.Position{PortfolioID: portfolioID, AssetID: assetID}, nil
	}
	return nil, err
}
