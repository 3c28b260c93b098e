package api

import (
	"errors"
	"net/http"
	"time"

	"lora-console/pkg/auth"
	"lora-console/pkg/ttn"
)

type loginRequest struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	token, sess, err := s.Sessions.Login(r.Context(), req.Token, req.UserID)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrMissingCredentials):
		http.Error(w, "token and userId are required", http.StatusBadRequest)
		return
	case errors.Is(err, ttn.ErrUnauthorized), errors.Is(err, ttn.ErrNotFound):
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	default:
		s.log(r.Context()).Error("login failed", "user", req.UserID, "error", err)
		http.Error(w, "login failed", http.StatusBadGateway)
		return
	}
	s.log(r.Context()).Info("session opened", "user", sess.UserID, "session", sess.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, UserID: sess.UserID, ExpiresAt: sess.ExpiresAt})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := s.Sessions.Logout(r.Context(), sess.ID); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
		s.log(r.Context()).Error("logout failed", "session", sess.ID, "error", err)
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"userId":    sess.UserID,
		"createdAt": sess.CreatedAt,
		"expiresAt": sess.ExpiresAt,
	})
}
