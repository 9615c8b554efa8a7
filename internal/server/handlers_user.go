package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"cryptofolio/internal/auth"
	"cryptofolio/internal/interfaces"
)

type updateUserRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	CurrentPassword string `json:"current_password"`
}

// handleUserMe handles GET/PUT/DELETE /api/users/me.
func (s *Server) handleUserMe(w http.ResponseWriter, r *http.Request) {
	username, ok := RequireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleUserGet(w, r, username)
	case http.MethodPut:
		s.handleUserUpdate(w, r, username)
	case http.MethodDelete:
		s.handleUserDelete(w, r, username)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request, username string) {
	user, err := s.app.Storage.UserStore().Get(r.Context(), username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("Failed to load user")
		WriteError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	WriteJSON(w, http.StatusOK, user.PublicView())
}

func (s *Server) handleUserUpdate(w http.ResponseWriter, r *http.Request, username string) {
	var req updateUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	user, err := s.app.Storage.UserStore().Get(ctx, username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("Failed to load user")
		WriteError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	if email := strings.TrimSpace(req.Email); email != "" && email != user.Email {
		if !strings.Contains(email, "@") {
			WriteError(w, http.StatusBadRequest, "Valid email is required")
			return
		}
		if other, err := s.app.Storage.UserStore().GetByEmail(ctx, email); err == nil && other.Username != username {
			WriteErrorWithCode(w, http.StatusConflict, "Email already registered", "email_taken")
			return
		} else if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			s.logger.Error().Err(err).Msg("Failed to check email")
			WriteError(w, http.StatusInternalServerError, "Failed to update user")
			return
		}
		user.Email = email
	}

	if req.Password != "" {
		if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
			WriteError(w, http.StatusUnauthorized, "Current password is incorrect")
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrWeakPassword) {
				WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.logger.Error().Err(err).Msg("Failed to hash password")
			WriteError(w, http.StatusInternalServerError, "Failed to update user")
			return
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.app.Storage.UserStore().Save(ctx, user); err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("Failed to save user")
		WriteError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	s.logger.Info().Str("username", username).Msg("User updated")
	WriteJSON(w, http.StatusOK, user.PublicView())
}

// handleUserDelete removes the account and everything it owns: portfolios
// (with their positions and transactions), watchlist entries and alerts.
func (s *Server) handleUserDelete(w http.ResponseWriter, r *http.Request, username string) {
	ctx := r.Context()

	portfolios, err := s.app.Portfolios.ListByUser(ctx, username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("Failed to list portfolios")
		WriteError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}
	for _, p := range portfolios {
		if err := s.app.Portfolios.Delete(ctx, p.ID); err != nil {
			s.logger.Error().Err(err).Str("portfolio_id", p.ID).Msg("Failed to delete portfolio")
			WriteError(w, http.StatusInternalServerError, "Failed to delete account")
			return
		}
	}

	entries, err := s.app.Storage.WatchlistStore().ListByUser(ctx, username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("Failed to list watchlist")
		WriteError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}
	for _, e := range entries {
		if err := s.app.Storage.WatchlistStore().Remove(ctx, username, e.AssetID); err != nil {
			s.logger.Error().Err(err).Str("asset_id", e.AssetID).Msg("Failed to remove watchlist entry")
			WriteError(w, http.StatusInternalServerError, "Failed to delete account")
			return
		}
	}

	alerts, err := s.app.Storage.AlertStore().ListByUser(ctx, username, false)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("Failed to list alerts")
		WriteError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}
	for _, a := range alerts {
		if err := s.app.Storage.AlertStore().Delete(ctx, a.ID); err != nil {
			s.logger.Error().Err(err).Str("alert_id", a.ID).Msg("Failed to delete alert")
			WriteError(w, http.StatusInternalServerError, "Failed to delete account")
			return
		}
	}

	if err := s.app.Storage.UserStore().Delete(ctx, username); err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("Failed to delete user")
		WriteError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}

	s.logger.Info().Str("username", username).Msg("Account deleted")
	w.WriteHeader(http.StatusNoContent)
}
