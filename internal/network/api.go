package network

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Fullann/Slither.io/internal/auth"
	"github.com/Fullann/Slither.io/internal/store"
)

const maxBodyBytes = 4096

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type authResponse struct {
	Token    string       `json:"token"`
	Username string       `json:"username"`
	User     *store.Stats `json:"user,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func readCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var c credentials
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return c, false
	}
	if c.Username == "" || c.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return c, false
	}
	return c, true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	c, ok := readCredentials(w, r)
	if !ok {
		return
	}
	ident, token, err := s.auth.Register(r.Context(), c.Username, c.Password, c.Email)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrUserExists):
		writeError(w, http.StatusConflict, err.Error())
		return
	default:
		s.log.Error("register failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not create account")
		return
	}
	s.log.Info("account created", "user", ident.UserID, "username", ident.Username)
	s.respondAuth(w, r, ident, token)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	c, ok := readCredentials(w, r)
	if !ok {
		return
	}
	ident, token, err := s.auth.Login(r.Context(), c.Username, c.Password, extractIP(r))
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrBadCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case errors.Is(err, auth.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	default:
		s.log.Error("login failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	s.respondAuth(w, r, ident, token)
}

func (s *Server) respondAuth(w http.ResponseWriter, r *http.Request, ident auth.Identity, token string) {
	resp := authResponse{Token: token, Username: ident.Username}
	if st, err := s.db.Stats(r.Context(), ident.UserID); err == nil {
		resp.User = st
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ident, err := s.auth.ValidateToken(tokenFrom(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	st, err := s.db.Stats(r.Context(), ident.UserID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, st)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		s.log.Error("loading stats", "user", ident.UserID, "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, 100)
	}
	rows, err := s.db.Leaderboard(r.Context(), r.URL.Query().Get("sort"), limit)
	if err != nil {
		s.log.Error("loading leaderboard", "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	humans, bots := s.room.Counts()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"humans":      humans,
		"bots":        bots,
		"connections": s.hub.Count(),
	})
}
