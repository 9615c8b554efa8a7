// Package alert manages user price alerts and evaluates them against the
// latest stored prices.
package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/ledger"
	"cryptofolio/internal/models"
)

// ErrForbidden is returned when a user acts on another user's alert.
var ErrForbidden = errors.New("forbidden")

// Service implements interfaces.AlertService.
type Service struct {
	storage interfaces.StorageManager
	prices  interfaces.PriceService
	logger  *common.Logger
}

var _ interfaces.AlertService = (*Service)(nil)

// NewService creates a new alert service.
func NewService(storage interfaces.StorageManager, prices interfaces.PriceService, logger *common.Logger) *Service {
	return &Service{storage: storage, prices: prices, logger: logger}
}

// Create registers a new active alert on an asset.
func (s *Service) Create(ctx context.Context, username, symbol string, condition models.AlertCondition, targetPrice float64) (*models.Alert, error) {
	assetID := models.AssetID(symbol)
	if assetID == "" || !condition.Valid() || targetPrice <= 0 {
		return nil, ledger.ErrInvalidInput
	}
	if _, err := s.storage.UserStore().Get(ctx, username); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	alert := &models.Alert{
		ID:          uuid.NewString(),
		Username:    username,
		AssetID:     assetID,
		Condition:   condition,
		TargetPrice: targetPrice,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.storage.AlertStore().Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to save alert: %w", err)
	}

	s.logger.Info().
		Str("alert_id", alert.ID).
		Str("asset_id", assetID).
		Str("condition", string(condition)).
		Float64("target", targetPrice).
		Msg("Alert created")
	return alert, nil
}

func (s *Service) ListByUser(ctx context.Context, username string, activeOnly bool) ([]*models.Alert, error) {
	return s.storage.AlertStore().ListByUser(ctx, username, activeOnly)
}

// SetActive arms or disarms an alert. Re-arming clears the triggered state.
func (s *Service) SetActive(ctx context.Context, id, username string, active bool) (*models.Alert, error) {
	alert, err := s.getOwned(ctx, id, username)
	if err != nil {
		return nil, err
	}

	alert.Active = active
	if active {
		alert.Triggered = false
		alert.TriggeredAt = nil
	}
	alert.UpdatedAt = time.Now().UTC()

	if err := s.storage.AlertStore().Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to save alert: %w", err)
	}
	return alert, nil
}

func (s *Service) Delete(ctx context.Context, id, username string) error {
	if _, err := s.getOwned(ctx, id, username); err != nil {
		return err
	}
	return s.storage.AlertStore().Delete(ctx, id)
}

// Evaluate checks every active alert against the latest stored prices and
// marks the ones whose threshold is crossed. A triggered alert is deactivated
// so it fires once until the user re-arms it.
func (s *Service) Evaluate(ctx context.Context) (int, error) {
	alerts, err := s.storage.AlertStore().ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active alerts: %w", err)
	}
	if len(alerts) == 0 {
		return 0, nil
	}

	lookup, err := s.prices.PriceLookup(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	triggered := 0
	for _, alert := range alerts {
		price, ok := lookup(alert.AssetID)
		if !ok || !alert.IsTriggered(price) {
			continue
		}

		alert.Triggered = true
		alert.Active = false
		alert.TriggeredAt = &now
		alert.UpdatedAt = now
		if err := s.storage.AlertStore().Save(ctx, alert); err != nil {
			s.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("Failed to mark alert triggered")
			continue
		}

		s.logger.Info().
			Str("alert_id", alert.ID).
			Str("username", alert.Username).
			Str("asset_id", alert.AssetID).
			Str("condition", string(alert.Condition)).
			Float64("target", alert.TargetPrice).
			Float64("price", price).
			Msg("Alert triggered")
		triggered++
	}
	return triggered, nil
}

func (s *Service) getOwned(ctx context.Context, id, username string) (*models.Alert, error) {
	alert, err := s.storage.AlertStore().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if username != "" && alert.Username != username {
		return nil, fmt.Errorf("alert %s: %w", id, ErrForbidden)
	}
	return alert, nil
}
