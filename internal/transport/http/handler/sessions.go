package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-marketplace-api/internal/application/session"
	"github.com/go-marketplace-api/internal/pkg/validate"
	"github.com/go-marketplace-api/internal/transport/http/middleware"
)

// SessionHandler handles login, token refresh and logout.
type SessionHandler struct {
	sessions session.Service
}

func NewSessionHandler(sessions session.Service) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req session.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pair, sess, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAuthEnvelope(pair, sess))
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req session.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pair, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.sessions.Logout(r.Context(), claims.SessionID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}
