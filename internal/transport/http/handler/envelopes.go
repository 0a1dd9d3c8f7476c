package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-marketplace-api/internal/application/session"
	"github.com/go-marketplace-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DetailEnvelope mirrors the wire shape the web and mobile clients already
// parse for item-image and OTP endpoints: a single "detail" string.
type DetailEnvelope struct {
	Detail string `json:"detail"`
}

// AuthEnvelope wraps login, register and google sign-in responses.
type AuthEnvelope struct {
	Bearer       string          `json:"Bearer,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	Session      *domain.Session `json:"session,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// PaginatedItemsEnvelope wraps the public listing feed.
type PaginatedItemsEnvelope struct {
	Count    int           `json:"count"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Results  []domain.Item `json:"results"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, DetailEnvelope{Detail: detail})
}

// statusFor maps a wrapped domain sentinel to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders a service-layer error in the generic envelope.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeError(w, status, msg)
}

func newAuthEnvelope(pair *session.TokenPair, sess *domain.Session) AuthEnvelope {
	return AuthEnvelope{
		Bearer:       pair.Bearer,
		RefreshToken: pair.RefreshToken,
		Session:      toSafeSession(sess),
	}
}

// toSafeSession strips credential material before a session leaves the API.
func toSafeSession(s *domain.Session) *domain.Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.RefreshToken = ""
	if cp.User != nil {
		u := *cp.User
		u.PasswordHash = ""
		cp.User = &u
	}
	return &cp
}
