package handler

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-marketplace-api/internal/application/image"
	"github.com/go-marketplace-api/internal/application/item"
	"github.com/go-marketplace-api/internal/domain"
	"github.com/go-marketplace-api/internal/transport/http/middleware"
)

const maxUploadMemory = 32 << 20

// ItemHandler handles the listing feed, listing CRUD and the image actions
// nested under a listing.
type ItemHandler struct {
	items  item.Service
	images image.Service
}

func NewItemHandler(items item.Service, images image.Service) *ItemHandler {
	return &ItemHandler{items: items, images: images}
}

// List serves the public feed with filtering, search and page/page_size
// pagination.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ItemFilter{
		Search:      q.Get("search"),
		CategoryID:  q.Get("category"),
		ListingType: q.Get("listing_type"),
	}
	var parseErr error
	filter.Price, parseErr = priceParam(q.Get("price"), parseErr)
	filter.PriceGTE, parseErr = priceParam(q.Get("price__gte"), parseErr)
	filter.PriceLTE, parseErr = priceParam(q.Get("price__lte"), parseErr)
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, "price filters must be integers")
		return
	}

	page := intParam(q.Get("page"), 1)
	pageSize := intParam(q.Get("page_size"), item.DefaultPageSize)

	results, total, err := h.items.List(r.Context(), filter, page, pageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaginatedItemsEnvelope{
		Count: total, Page: page, PageSize: pageSize, Results: results,
	})
}

// Create publishes a listing from a multipart form: text fields plus 1 to 3
// files under "images".
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	price, err := strconv.ParseInt(r.FormValue("price"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "price must be an integer")
		return
	}
	req := domain.CreateItemRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Price:       price,
		CategoryID:  r.FormValue("category"),
		ListingType: r.FormValue("listing_type"),
		Location:    r.FormValue("location"),
	}

	files, cleanup, err := collectUploads(r, "images", "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	it, err := h.items.Create(r.Context(), claims.UserID, req, files)
	if err != nil {
		h.writeImageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	it, err := h.items.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	it, err := h.items.Update(r.Context(), claims.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.items.Delete(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMine returns the authenticated user's own listings, any status.
func (h *ItemHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.items.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// AddImage appends one or more images to an owned listing.
func (h *ItemHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.requireOwnership(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeDetail(w, http.StatusBadRequest, "No image file provided.")
		return
	}
	defer closeMultipart(r)

	files, cleanup, err := collectUploads(r, "images", "image")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "No image file provided.")
		return
	}
	defer cleanup()

	added, err := h.images.AddImages(r.Context(), itemID, files)
	if err != nil {
		h.writeImageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// RemoveImage deletes one image from an owned listing.
func (h *ItemHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.requireOwnership(w, r)
	if !ok {
		return
	}
	if err := h.images.RemoveImage(r.Context(), itemID, chi.URLParam(r, "imageID")); err != nil {
		h.writeImageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	Order []string `json:"image_order"`
}

// ReorderImages applies a new display order to an owned listing's images.
func (h *ItemHandler) ReorderImages(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.requireOwnership(w, r)
	if !ok {
		return
	}
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Please provide the correct order for all images.")
		return
	}
	if err := h.images.ReorderImages(r.Context(), itemID, req.Order); err != nil {
		h.writeImageError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// requireOwnership loads the listing from the URL and confirms the caller
// owns it. Writes the response itself when the check fails.
func (h *ItemHandler) requireOwnership(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	itemID := chi.URLParam(r, "id")
	it, err := h.items.Get(r.Context(), itemID)
	if err != nil {
		writeServiceError(w, err)
		return "", false
	}
	if it.UserID != claims.UserID {
		writeError(w, http.StatusForbidden, "not the owner of this item")
		return "", false
	}
	return itemID, true
}

// writeImageError renders image-invariant violations with the exact detail
// strings the clients match on.
func (h *ItemHandler) writeImageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, image.ErrNoFile):
		writeDetail(w, http.StatusBadRequest, "No image file provided.")
	case errors.Is(err, image.ErrTooManyImages):
		writeDetail(w, http.StatusBadRequest, "Item already has the maximum of 3 images.")
	case errors.Is(err, image.ErrLastImage):
		writeDetail(w, http.StatusBadRequest, "Item must have at least one image.")
	case errors.Is(err, image.ErrBadOrder):
		writeDetail(w, http.StatusBadRequest, "Please provide the correct order for all images.")
	case errors.Is(err, image.ErrNotOwned):
		writeDetail(w, http.StatusNotFound, "Image not found.")
	default:
		writeServiceError(w, err)
	}
}

// collectUploads opens the files posted under the given form fields, in the
// order the client sent them. The returned cleanup closes every opened file.
func collectUploads(r *http.Request, fields ...string) ([]image.Upload, func(), error) {
	if r.MultipartForm == nil {
		return nil, func() {}, errors.New("expected multipart form data")
	}
	var headers []*multipart.FileHeader
	for _, field := range fields {
		if hs := r.MultipartForm.File[field]; len(hs) > 0 {
			headers = hs
			break
		}
	}

	var opened []multipart.File
	cleanup := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	uploads := make([]image.Upload, 0, len(headers))
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		opened = append(opened, f)
		uploads = append(uploads, image.Upload{
			Reader:      f,
			Filename:    hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
		})
	}
	return uploads, cleanup, nil
}

func closeMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func priceParam(raw string, prev error) (*int64, error) {
	if prev != nil || raw == "" {
		return nil, prev
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
