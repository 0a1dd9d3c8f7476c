package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-marketplace-api/internal/application/passwordreset"
	"github.com/go-marketplace-api/internal/pkg/validate"
)

// PasswordResetHandler drives the three-step OTP flow: send, verify, reset.
// Successes answer with a "message" body, failures with a "detail" body —
// both keep the exact strings the existing clients match on.
type PasswordResetHandler struct {
	svc passwordreset.Service
}

func NewPasswordResetHandler(svc passwordreset.Service) *PasswordResetHandler {
	return &PasswordResetHandler{svc: svc}
}

func (h *PasswordResetHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req passwordreset.SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeDetail(w, http.StatusBadRequest, "A valid email is required.")
		return
	}
	if err := h.svc.IssueOTP(r.Context(), req.Email); err != nil {
		h.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "OTP send to email"})
}

func (h *PasswordResetHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req passwordreset.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Email and OTP are required.")
		return
	}
	if err := h.svc.VerifyOTP(r.Context(), req.Email, req.OTP); err != nil {
		h.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "OTP verified successfully."})
}

func (h *PasswordResetHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordreset.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Email and a password of at least 8 characters are required.")
		return
	}
	if err := h.svc.ConsumePassword(r.Context(), req.Email, req.Password); err != nil {
		h.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Password changed successfully."})
}

func (h *PasswordResetHandler) writeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, passwordreset.ErrUnknownAccount):
		writeDetail(w, http.StatusBadRequest, "No account exist with this email.")
	case errors.Is(err, passwordreset.ErrOTPExpired):
		writeDetail(w, http.StatusBadRequest, "OTP has expired or was not found.")
	case errors.Is(err, passwordreset.ErrOTPMismatch):
		writeDetail(w, http.StatusBadRequest, "Invalid OTP.")
	case errors.Is(err, passwordreset.ErrNotVerified):
		writeDetail(w, http.StatusBadRequest, "OTP not verified or expired.")
	case errors.Is(err, passwordreset.ErrSamePassword):
		writeDetail(w, http.StatusBadRequest, "New password can't be the same as the old one.")
	default:
		writeServiceError(w, err)
	}
}
