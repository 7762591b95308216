package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-message-triage/users"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  *users.User `json:"user"`
}

// RegisterHandler creates a new operator account and returns a bearer token.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Name == "" || req.Email == "" {
			writeError(w, http.StatusBadRequest, "name and email are required")
			return
		}
		if err := users.ValidatePasswordStrength(req.Password); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		hash, err := users.HashPassword(req.Password)
		if err != nil {
			s.logger.Error().Err(err).Msg("hashing password")
			writeError(w, http.StatusInternalServerError, "could not create user")
			return
		}

		user := &users.User{
			ID:           uuid.New().String(),
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: hash,
			DateJoined:   time.Now(),
		}
		if err := s.users.Create(r.Context(), user); err != nil {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}

		token, err := s.createAccessToken(user)
		if err != nil {
			s.logger.Error().Err(err).Msg("issuing token")
			writeError(w, http.StatusInternalServerError, "could not issue token")
			return
		}

		writeJSON(w, http.StatusCreated, tokenResponse{Token: token, User: user})
	}
}

// LoginHandler checks credentials and returns a bearer token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := s.users.GetByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
		if err != nil || !users.CheckPasswordHash(req.Password, user.PasswordHash) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, err := s.createAccessToken(user)
		if err != nil {
			s.logger.Error().Err(err).Msg("issuing token")
			writeError(w, http.StatusInternalServerError, "could not issue token")
			return
		}

		writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: user})
	}
}
