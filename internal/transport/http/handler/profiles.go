package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-marketplace-api/internal/application/profile"
	"github.com/go-marketplace-api/internal/domain"
	"github.com/go-marketplace-api/internal/transport/http/middleware"
)

// ProfileHandler handles the authenticated user's profile endpoints.
type ProfileHandler struct {
	profiles profile.Service
}

func NewProfileHandler(profiles profile.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	v, err := h.profiles.Get(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := h.profiles.Update(r.Context(), claims.UserID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// UploadAvatar replaces the profile image. Multipart form, file field "image".
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form data")
		return
	}
	defer closeMultipart(r)

	f, hdr, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no image file provided")
		return
	}
	defer f.Close()

	v, err := h.profiles.UploadAvatar(r.Context(), claims.UserID, profile.AvatarUpload{
		Reader:      f,
		Filename:    hdr.Filename,
		Size:        hdr.Size,
		ContentType: hdr.Header.Get("Content-Type"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
