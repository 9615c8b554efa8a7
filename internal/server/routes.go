package server

import (
	"net/http"
	"strings"

	"cryptofolio/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Auth
	mux.HandleFunc("/api/auth/register", s.handleAuthRegister)
	mux.HandleFunc("/api/auth/login", s.handleAuthLogin)

	// Users
	mux.HandleFunc("/api/users/me", s.handleUserMe)

	// Portfolios
	mux.HandleFunc("/api/portfolios/", s.routePortfolios)
	mux.HandleFunc("/api/portfolios", s.handlePortfolios)

	// Transactions
	mux.HandleFunc("/api/transactions/", s.handleTransactionByID)

	// Market data
	mux.HandleFunc("/api/market/quote/", s.handleMarketQuote)
	mux.HandleFunc("/api/market/assets", s.handleMarketAssets)
	mux.HandleFunc("/api/market/refresh", s.handleMarketRefresh)
	mux.HandleFunc("/api/market/sync", s.handleMarketSync)

	// Watchlist
	mux.HandleFunc("/api/watchlist/", s.handleWatchlistItem)
	mux.HandleFunc("/api/watchlist", s.handleWatchlist)

	// Alerts
	mux.HandleFunc("/api/alerts/", s.routeAlerts)
	mux.HandleFunc("/api/alerts", s.handleAlerts)
}

// routePortfolios dispatches /api/portfolios/{id}/* to the appropriate handler.
func (s *Server) routePortfolios(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/portfolios/")
	if path == "" {
		s.handlePortfolios(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	subpath := ""
	if len(parts) > 1 {
		subpath = parts[1]
	}

	switch subpath {
	case "":
		s.handlePortfolioByID(w, r, id)
	case "holdings":
		s.handlePortfolioHoldings(w, r, id)
	case "summary":
		s.handlePortfolioSummary(w, r, id)
	case "transactions":
		s.handlePortfolioTransactions(w, r, id)
	case "chart":
		s.handlePortfolioChart(w, r, id)
	case "export":
		s.handlePortfolioExport(w, r, id)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// routeAlerts dispatches /api/alerts/{id} and /api/alerts/{id}/active.
func (s *Server) routeAlerts(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/alerts/")
	if path == "" {
		s.handleAlerts(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if len(parts) == 2 && parts[1] == "active" {
		s.handleAlertActive(w, r, id)
		return
	}
	if len(parts) == 1 {
		s.handleAlertByID(w, r, id)
		return
	}
	WriteError(w, http.StatusNotFound, "Not found")
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}
