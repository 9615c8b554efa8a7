package server

import (
	"errors"
	"net/http"

	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/ledger"
	"cryptofolio/internal/models"
	"cryptofolio/internal/services/alert"
)

type alertRequest struct {
	Symbol      string  `json:"symbol"`
	Condition   string  `json:"condition"`
	TargetPrice float64 `json:"target_price"`
}

type alertActiveRequest struct {
	Active bool `json:"active"`
}

// handleAlerts handles GET and POST /api/alerts.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	username, ok := RequireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("active") == "true"
		alerts, err := s.app.Alerts.ListByUser(r.Context(), username, activeOnly)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to list alerts")
			WriteError(w, http.StatusInternalServerError, "Failed to list alerts")
			return
		}
		if alerts == nil {
			alerts = []*models.Alert{}
		}
		WriteJSON(w, http.StatusOK, alerts)

	case http.MethodPost:
		var req alertRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		created, err := s.app.Alerts.Create(r.Context(), username, req.Symbol,
			models.AlertCondition(req.Condition), req.TargetPrice)
		if err != nil {
			if errors.Is(err, ledger.ErrInvalidInput) {
				WriteError(w, http.StatusBadRequest, "Alert requires a symbol, condition (above/below), and positive target price")
				return
			}
			s.logger.Error().Err(err).Msg("Failed to create alert")
			WriteError(w, http.StatusInternalServerError, "Failed to create alert")
			return
		}
		WriteJSON(w, http.StatusCreated, created)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleAlertByID handles DELETE /api/alerts/{id}.
func (s *Server) handleAlertByID(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	username, ok := RequireUser(w, r)
	if !ok {
		return
	}

	if err := s.app.Alerts.Delete(r.Context(), id, username); err != nil {
		writeAlertError(w, s, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAlertActive handles PATCH /api/alerts/{id}/active.
func (s *Server) handleAlertActive(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPatch) {
		return
	}
	username, ok := RequireUser(w, r)
	if !ok {
		return
	}

	var req alertActiveRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	updated, err := s.app.Alerts.SetActive(r.Context(), id, username, req.Active)
	if err != nil {
		writeAlertError(w, s, err, id)
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

func writeAlertError(w http.ResponseWriter, s *Server, err error, id string) {
	switch {
	case errors.Is(err, interfaces.ErrNotFound), errors.Is(err, alert.ErrForbidden):
		WriteError(w, http.StatusNotFound, "Alert not found")
	default:
		s.logger.Error().Err(err).Str("alert_id", id).Msg("Alert operation failed")
		WriteError(w, http.StatusInternalServerError, "Alert operation failed")
	}
}
