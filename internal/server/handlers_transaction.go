package server

import (
	"errors"
	"net/http"
	"time"

	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/ledger"
	"cryptofolio/internal/models"
	"cryptofolio/internal/services/transaction"
)

type transactionRequest struct {
	Symbol       string    `json:"symbol"`
	Type         string    `json:"type"`
	Quantity     float64   `json:"quantity"`
	PricePerUnit float64   `json:"price_per_unit"`
	Fee          float64   `json:"fee"`
	Exchange     string    `json:"exchange"`
	Notes        string    `json:"notes"`
	Timestamp    time.Time `json:"timestamp"`
}

// handlePortfolioTransactions handles GET and POST
// /api/portfolios/{id}/transactions.
func (s *Server) handlePortfolioTransactions(w http.ResponseWriter, r *http.Request, id string) {
	username, ok := RequireUser(w, r)
	if !ok {
		return
	}
	if s.ownedPortfolio(w, r, id, username) == nil {
		return
	}

	switch r.Method {
	case http.MethodGet:
		limit := QueryInt(r, "limit", 100)
		txs, err := s.app.Transactions.List(r.Context(), id, limit)
		if err != nil {
			s.logger.Error().Err(err).Str("portfolio_id", id).Msg("Failed to list transactions")
			WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
			return
		}
		if txs == nil {
			txs = []*models.Transaction{}
		}
		WriteJSON(w, http.StatusOK, txs)

	case http.MethodPost:
		var req transactionRequest
		if !DecodeJSON(w, r, &req) {
			return
		}

		tx, err := s.app.Transactions.Record(r.Context(), interfaces.RecordTransactionRequest{
			Username:     username,
			PortfolioID:  id,
			Symbol:       req.Symbol,
			Type:         models.TransactionType(req.Type),
			Quantity:     req.Quantity,
			PricePerUnit: req.PricePerUnit,
			Fee:          req.Fee,
			Exchange:     req.Exchange,
			Notes:        req.Notes,
			Timestamp:    req.Timestamp,
		})
		if err != nil {
			writeTransactionError(w, s, err, id)
			return
		}
		WriteJSON(w, http.StatusCreated, tx)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleTransactionByID handles DELETE /api/transactions/{id}.
func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	username, ok := RequireUser(w, r)
	if !ok {
		return
	}

	id := PathParam(r, "/api/transactions/", "")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Transaction id is required")
		return
	}

	if err := s.app.Transactions.Delete(r.Context(), id, username); err != nil {
		switch {
		case errors.Is(err, interfaces.ErrNotFound):
			WriteError(w, http.StatusNotFound, "Transaction not found")
		case errors.Is(err, transaction.ErrForbidden):
			WriteError(w, http.StatusNotFound, "Transaction not found")
		case errors.Is(err, ledger.ErrInsufficientBalance):
			WriteErrorWithCode(w, http.StatusUnprocessableEntity,
				"Reversal would leave a negative balance", "insufficient_balance")
		default:
			s.logger.Error().Err(err).Str("transaction_id", id).Msg("Failed to delete transaction")
			WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeTransactionError(w http.ResponseWriter, s *Server, err error, portfolioID string) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		WriteErrorWithCode(w, http.StatusUnprocessableEntity,
			"Sell quantity exceeds held balance", "insufficient_balance")
	case errors.Is(err, ledger.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "Invalid transaction: "+err.Error())
	case errors.Is(err, interfaces.ErrNotFound):
		WriteError(w, http.StatusNotFound, "Portfolio not found")
	default:
		s.logger.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to record transaction")
		WriteError(w, http.StatusInternalServerError, "Failed to record transaction")
	}
}
