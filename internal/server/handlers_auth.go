package server

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"cryptofolio/internal/auth"
	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/models"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,31}$`)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string                 `json:"token"`
	ExpiresAt time.Time              `json:"expires_at"`
	User      map[string]interface{} `json:"user"`
}

// handleAuthRegister handles POST /api/auth/register.
func (s *Server) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req registerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if !usernamePattern.MatchString(username) {
		WriteError(w, http.StatusBadRequest, "Username must be 3-32 characters: lowercase letters, digits, hyphen, underscore")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		WriteError(w, http.StatusBadRequest, "Valid email is required")
		return
	}

	ctx := r.Context()
	if _, err := s.app.Storage.UserStore().Get(ctx, username); err == nil {
		WriteErrorWithCode(w, http.StatusConflict, "Username already taken", "username_taken")
		return
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		s.logger.Error().Err(err).Msg("Failed to check username")
		WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}
	if _, err := s.app.Storage.UserStore().GetByEmail(ctx, email); err == nil {
		WriteErrorWithCode(w, http.StatusConflict, "Email already registered", "email_taken")
		return
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		s.logger.Error().Err(err).Msg("Failed to check email")
		WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("Failed to hash password")
		WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.app.Storage.UserStore().Save(ctx, user); err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("Failed to save user")
		WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	token, expiresAt, err := s.app.Tokens.Issue(username)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue token")
		WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	s.logger.Info().Str("username", username).Msg("User registered")
	WriteJSON(w, http.StatusCreated, authResponse{Token: token, ExpiresAt: expiresAt, User: user.PublicView()})
}

// handleAuthLogin handles POST /api/auth/login.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	user, err := s.app.Storage.UserStore().Get(r.Context(), username)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			// Same response as a bad password so usernames can't be probed.
			WriteError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to load user")
		WriteError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		WriteError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, expiresAt, err := s.app.Tokens.Issue(username)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue token")
		WriteError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	s.logger.Info().Str("username", username).Msg("User logged in")
	WriteJSON(w, http.StatusOK, authResponse{Token: token, ExpiresAt: expiresAt, User: user.PublicView()})
}
