package server

import (
	"errors"
	"fmt"
	"net/http"

	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/models"
	"cryptofolio/internal/services/portfolio"
)

type portfolioRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ownedPortfolio loads the portfolio and enforces ownership. Writes the
// error response and returns nil when the caller may not touch it.
func (s *Server) ownedPortfolio(w http.ResponseWriter, r *http.Request, id, username string) *models.Portfolio {
	pf, err := s.app.Portfolios.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Portfolio not found")
		} else {
			s.logger.Error().Err(err).Str("portfolio_id", id).Msg("Failed to load portfolio")
			WriteError(w, http.StatusInternalServerError, "Failed to load portfolio")
		}
		return nil
	}
	if pf.Username != username {
		// 404 rather than 403 so portfolio ids can't be enumerated.
		WriteError(w, http.StatusNotFound, "Portfolio not found")
		return nil
	}
	return pf
}

// handlePortfolios handles GET and POST /api/portfolios.
func (s *Server) handlePortfolios(w http.ResponseWriter, r *http.Request) {
	username, ok := RequireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		portfolios, err := s.app.Portfolios.ListByUser(r.Context(), username)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to list portfolios")
			WriteError(w, http.StatusInternalServerError, "Failed to list portfolios")
			return
		}
		if portfolios == nil {
			portfolios = []*models.Portfolio{}
		}
		WriteJSON(w, http.StatusOK, portfolios)

	case http.MethodPost:
		var req portfolioRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		pf, err := s.app.Portfolios.Create(r.Context(), username, req.Name, req.Description)
		if err != nil {
			if errors.Is(err, portfolio.ErrInvalidName) {
				WriteError(w, http.StatusBadRequest, "Portfolio name must be 1-100 characters")
				return
			}
			s.logger.Error().Err(err).Msg("Failed to create portfolio")
			WriteError(w, http.StatusInternalServerError, "Failed to create portfolio")
			return
		}
		WriteJSON(w, http.StatusCreated, pf)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handlePortfolioByID handles GET, PUT, DELETE /api/portfolios/{id}.
func (s *Server) handlePortfolioByID(w http.ResponseWriter, r *http.Request, id string) {
	username, ok := RequireUser(w, r)
	if !ok {
		return
	}
	pf := s.ownedPortfolio(w, r, id, username)
	if pf == nil {
		return
	}

	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, http.StatusOK, pf)

	case http.MethodPut:
		var req portfolioRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		updated, err := s.app.Portfolios.Update(r.Context(), id, req.Name, req.Description)
		if err != nil {
			if errors.Is(err, portfolio.ErrInvalidName) {
				WriteError(w, http.StatusBadRequest, "Portfolio name must be 1-100 characters")
				return
			}
			s.logger.Error().Err(err).Str("portfolio_id", id).Msg("Failed to update portfolio")
			WriteError(w, http.StatusInternalServerError, "Failed to update portfolio")
			return
		}
		WriteJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if err := s.app.Portfolios.Delete(r.Context(), id); err != nil {
			s.logger.Error().Err(err).Str("portfolio_id", id).Msg("Failed to delete portfolio")
			WriteError(w, http.StatusInternalServerError, "Failed to delete portfolio")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// handlePortfolioHoldings handles GET /api/portfolios/{id}/holdings.
func (s *Server) handlePortfolioHoldings(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	username, ok := RequireUser(w, r)
	if !ok {
		return
	}
	if s.ownedPortfolio(w, r, id, username) == nil {
		return
	}

	holdings, err := s.app.Portfolios.Holdings(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str("portfolio_id", id).Msg("Failed to load holdings")
		WriteError(w, http.StatusInternalServerError, "Failed to load holdings")
		return
	}
	if holdings == nil {
		holdings = []*models.HoldingView{}
	}
	WriteJSON(w, http.StatusOK, holdings)
}

// handlePortfolioSummary handles GET /api/portfolios/{id}/summary.
func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	username, ok := RequireUser(w, r)
	if !ok {
		return
	}
	if s.ownedPortfolio(w, r, id, username) == nil {
		return
	}

	summary, err := s.app.Portfolios.Summary(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str("portfolio_id", id).Msg("Failed to build summary")
		WriteError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

// handlePortfolioChart handles GET /api/portfolios/{id}/chart.
func (s *Server) handlePortfolioChart(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	username, ok := RequireUser(w, r)
	if !ok {
		return
	}
	if s.ownedPortfolio(w, r, id, username) == nil {
		return
	}

	png, err := s.app.Portfolios.RenderAllocationChart(r.Context(), id)
	if err != nil {
		if errors.Is(err, portfolio.ErrNothingToChart) {
			WriteError(w, http.StatusNotFound, "Portfolio has no valued holdings to chart")
			return
		}
		s.logger.Error().Err(err).Str("portfolio_id", id).Msg("Failed to render chart")
		WriteError(w, http.StatusInternalServerError, "Failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// handlePortfolioExport handles GET /api/portfolios/{id}/export.
func (s *Server) handlePortfolioExport(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	username, ok := RequireUser(w, r)
	if !ok {
		return
	}
	pf := s.ownedPortfolio(w, r, id, username)
	if pf == nil {
		return
	}

	out, err := s.app.Portfolios.ExportTransactionsCSV(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str("portfolio_id", id).Msg("Failed to export transactions")
		WriteError(w, http.StatusInternalServerError, "Failed to export transactions")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pf.Name+"-transactions.csv"))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}
