package portfolio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"cryptofolio/internal/models"
)

// ExportTransactionsCSV renders the portfolio's full transaction history as
// CSV, oldest first.
func (s *Service) ExportTransactionsCSV(ctx context.Context, id string) ([]byte, error) {
	if _, err := s.storage.PortfolioStore().Get(ctx, id); err != nil {
		return nil, err
	}
	txs, err := s.storage.TransactionStore().ListByPortfolio(ctx, id, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	// ListByPortfolio returns newest first; exports read better
	// chronologically.
	rows := make([]*models.TransactionExport, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		rows = append(rows, &models.TransactionExport{
			Timestamp:    tx.Timestamp.UTC().Format(time.RFC3339),
			Type:         string(tx.Type),
			Symbol:       strings.ToUpper(tx.AssetID),
			Quantity:     tx.Quantity,
			PricePerUnit: tx.PricePerUnit,
			TotalCost:    tx.TotalCost(),
			Fee:          tx.Fee,
			Exchange:     tx.Exchange,
			Notes:        tx.Notes,
		})
	}

	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal CSV: %w", err)
	}
	return out, nil
}
