package server

import (
	"errors"
	"net/http"

	"cryptofolio/internal/models"
	"cryptofolio/internal/services/price"
)

// handleMarketQuote handles GET /api/market/quote/{symbol}.
func (s *Server) handleMarketQuote(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := PathParam(r, "/api/market/quote/", "")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol is required in path")
		return
	}

	quote, err := s.app.Prices.GetQuote(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, price.ErrNoQuote) {
			WriteError(w, http.StatusNotFound, "No quote available for "+symbol)
			return
		}
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch quote")
		WriteError(w, http.StatusInternalServerError, "Failed to fetch quote")
		return
	}
	WriteJSON(w, http.StatusOK, quote)
}

// handleMarketAssets handles GET /api/market/assets, with an optional
// ?search= term.
func (s *Server) handleMarketAssets(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	var (
		assets []*models.Asset
		err    error
	)
	if term := r.URL.Query().Get("search"); term != "" {
		assets, err = s.app.Storage.AssetStore().Search(r.Context(), term)
	} else {
		assets, err = s.app.Storage.AssetStore().List(r.Context(), true)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list assets")
		WriteError(w, http.StatusInternalServerError, "Failed to list assets")
		return
	}
	if assets == nil {
		assets = []*models.Asset{}
	}
	WriteJSON(w, http.StatusOK, assets)
}

// handleMarketRefresh handles POST /api/market/refresh: an on-demand run of
// the scheduled price refresh.
func (s *Server) handleMarketRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if _, ok := RequireUser(w, r); !ok {
		return
	}

	updated, err := s.app.Prices.RefreshPrices(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Manual price refresh failed")
		WriteError(w, http.StatusBadGateway, "Price refresh failed")
		return
	}

	triggered, err := s.app.Alerts.Evaluate(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Alert evaluation failed after manual refresh")
	}

	WriteJSON(w, http.StatusOK, map[string]int{
		"updated":   updated,
		"triggered": triggered,
	})
}

// handleMarketSync handles POST /api/market/sync: refreshes the asset
// catalog from the provider's top listings.
func (s *Server) handleMarketSync(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if _, ok := RequireUser(w, r); !ok {
		return
	}

	limit := QueryInt(r, "limit", 100)
	written, err := s.app.Prices.SyncCatalog(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Catalog sync failed")
		WriteError(w, http.StatusBadGateway, "Catalog sync failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"assets": written})
}
