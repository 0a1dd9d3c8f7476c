package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-marketplace-api/internal/application/session"
	"github.com/go-marketplace-api/internal/application/user"
	"github.com/go-marketplace-api/internal/infrastructure/google"
)

// GoogleHandler exchanges a Google ID token for an API session.
type GoogleHandler struct {
	verifier *google.Verifier
	users    user.Service
	sessions session.Service
}

func NewGoogleHandler(verifier *google.Verifier, users user.Service, sessions session.Service) *GoogleHandler {
	return &GoogleHandler{verifier: verifier, users: users, sessions: sessions}
}

type googleSignInRequest struct {
	IDToken string `json:"id_token"`
}

func (h *GoogleHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req googleSignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		writeError(w, http.StatusBadRequest, "id_token required")
		return
	}

	payload, err := h.verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	u, err := h.users.GoogleSignIn(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pair, sess, err := h.sessions.Open(r.Context(), u)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAuthEnvelope(pair, sess))
}
