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

// TransactionStore implements interfaces.TransactionStore using SurrealDB.
type TransactionStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(db *surrealdb.DB, logger *common.Logger) *TransactionStore {
	return &TransactionStore{db: db, logger: logger}
}

func (s *TransactionStore) Get(ctx context.Context, id string) (*models.Transaction, error) {
	tx, err := surrealdb.Select[models.Transaction](ctx, s.db, surrealmodels.NewRecordID("txn", id))
	if err != nil {
		return nil, fmt.Errorf("failed to select transaction: %w", err)
	}
	if tx == nil || tx.ID == "" {
		return nil, fmt.Errorf("transaction %q: %w", id, interfaces.ErrNotFound)
	}
	return tx, nil
}

func (s *TransactionStore) Save(ctx context.Context, tx *models.Transaction) error {
	sql := "UPSERT type::record('txn', $id) CONTENT $tx"
	vars := map[string]any{"id": tx.ID, "tx": tx}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if _, err := surrealdb.Query[[]models.Transaction](ctx, s.db, sql, vars); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("failed to save transaction after retries: %w", lastErr)
}

func (s *TransactionStore) Delete(ctx context.Context, id string) error {
	_, err := surrealdb.Delete[models.Transaction](ctx, s.db, surrealmodels.NewRecordID("txn", id))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

func (s *TransactionStore) ListByPortfolio(ctx context.Context, portfolioID string, limit int) ([]*models.Transaction, error) {
	sql := "SELECT * FROM txn WHERE portfolio_id = $portfolio_id ORDER BY timestamp DESC"
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	txs, err := querySlice[models.Transaction](ctx, s.db, sql, map[string]any{"portfolio_id": portfolioID})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionStore) ListByUser(ctx context.Context, username string, limit int) ([]*models.Transaction, error) {
	sql := "SELECT * FROM txn WHERE username = $username ORDER BY timestamp DESC"
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	txs, err := querySlice[models.Transaction](ctx, s.db, sql, map[string]any{"username": username})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions by user: %w", err)
	}
	return txs, nil
}

func (s *TransactionStore) DeleteByPortfolio(ctx context.Context, portfolioID string) (int, error) {
	sql := "SELECT count() AS cnt FROM txn WHERE portfolio_id = $portfolio_id GROUP ALL"
	vars := map[string]any{"portfolio_id": portfolioID}

	count, err := queryCount(ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	if _, err := surrealdb.Query[any](ctx, s.db, "DELETE txn WHERE portfolio_id = $portfolio_id", vars); err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	return count, nil
}
