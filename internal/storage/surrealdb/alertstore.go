package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/models"
)

// AlertStore implements interfaces.AlertStore using SurrealDB.
type AlertStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewAlertStore creates a new AlertStore.
func NewAlertStore(db *surrealdb.DB, logger *common.Logger) *AlertStore {
	return &AlertStore{db: db, logger: logger}
}

func (s *AlertStore) Get(ctx context.Context, id string) (*models.Alert, error) {
	alert, err := surrealdb.Select[models.Alert](ctx, s.db, surrealmodels.NewRecordID("alert", id))
	if err != nil {
		return nil, fmt.Errorf("failed to select alert: %w", err)
	}
	if alert == nil || alert.ID == "" {
		return nil, fmt.Errorf("alert %q: %w", id, interfaces.ErrNotFound)
	}
	return alert, nil
}

func (s *AlertStore) Save(ctx context.Context, alert *models.Alert) error {
	sql := "UPSERT type::record('alert', $id) CONTENT $alert"
	vars := map[string]any{"id": alert.ID, "alert": alert}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if _, err := surrealdb.Query[[]models.Alert](ctx, s.db, sql, vars); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("failed to save alert after retries: %w", lastErr)
}

func (s *AlertStore) Delete(ctx context.Context, id string) error {
	_, err := surrealdb.Delete[models.Alert](ctx, s.db, surrealmodels.NewRecordID("alert", id))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return nil
}

func (s *AlertStore) ListByUser(ctx context.Context, username string, activeOnly bool) ([]*models.Alert, error) {
	sql := "SELECT * FROM alert WHERE username = $username ORDER BY created_at DESC"
	if activeOnly {
		sql = "SELECT * FROM alert WHERE username = $username AND active = true ORDER BY created_at DESC"
	}
	alerts, err := querySlice[models.Alert](ctx, s.db, sql, map[string]any{"username": username})
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

func (s *AlertStore) ListActive(ctx context.Context) ([]*models.Alert, error) {
	sql := "SELECT * FROM alert WHERE active = true"
	alerts, err := querySlice[models.Alert](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list active alerts: %w", err)
	}
	return alerts, nil
}
