package server

import (
	"errors"
	"net/http"

	"cryptofolio/internal/ledger"
	"cryptofolio/internal/models"
)

type watchlistRequest struct {
	Symbol string `json:"symbol"`
}

// handleWatchlist handles GET and POST /api/watchlist.
func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	username, ok := RequireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := s.app.Watchlists.List(r.Context(), username)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to list watchlist")
			WriteError(w, http.StatusInternalServerError, "Failed to list watchlist")
			return
		}
		if items == nil {
			items = []*models.WatchlistItem{}
		}
		WriteJSON(w, http.StatusOK, items)

	case http.MethodPost:
		var req watchlistRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		entry, err := s.app.Watchlists.Add(r.Context(), username, req.Symbol)
		if err != nil {
			if errors.Is(err, ledger.ErrInvalidInput) {
				WriteError(w, http.StatusBadRequest, "Symbol is required")
				return
			}
			s.logger.Error().Err(err).Msg("Failed to add watchlist entry")
			WriteError(w, http.StatusInternalServerError, "Failed to add watchlist entry")
			return
		}
		WriteJSON(w, http.StatusCreated, entry)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleWatchlistItem handles DELETE /api/watchlist/{symbol}.
func (s *Server) handleWatchlistItem(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	username, ok := RequireUser(w, r)
	if !ok {
		return
	}

	symbol := PathParam(r, "/api/watchlist/", "")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol is required in path")
		return
	}

	if err := s.app.Watchlists.Remove(r.Context(), username, symbol); err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to remove watchlist entry")
		WriteError(w, http.StatusInternalServerError, "Failed to remove watchlist entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
