package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-marketplace-api/internal/application/session"
	"github.com/go-marketplace-api/internal/application/user"
	"github.com/go-marketplace-api/internal/domain"
	"github.com/go-marketplace-api/internal/transport/http/middleware"
)

// UserHandler handles account registration and the current-user endpoint.
type UserHandler struct {
	users    user.Service
	sessions session.Service
}

func NewUserHandler(users user.Service, sessions session.Service) *UserHandler {
	return &UserHandler{users: users, sessions: sessions}
}

// Register creates the account and logs it straight in.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pair, sess, err := h.sessions.Open(r.Context(), u)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAuthEnvelope(pair, sess))
}

// Me returns the authenticated user's own record.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Delete disables the authenticated user's own account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.users.SoftDelete(r.Context(), claims.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account deleted"})
}
