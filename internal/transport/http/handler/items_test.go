package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-marketplace-api/internal/application/image"
	"github.com/go-marketplace-api/internal/application/item"
	"github.com/go-marketplace-api/internal/domain"
	jwtinfra "github.com/go-marketplace-api/internal/infrastructure/jwt"
	"github.com/go-marketplace-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockItemSvc struct{ mock.Mock }

func (m *mockItemSvc) Create(ctx context.Context, userID string, req domain.CreateItemRequest, files []image.Upload) (*domain.Item, error) {
	args := m.Called(ctx, userID, req, files)
	if it, _ := args.Get(0).(*domain.Item); it != nil {
		return it, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockItemSvc) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	args := m.Called(ctx, itemID)
	if it, _ := args.Get(0).(*domain.Item); it != nil {
		return it, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockItemSvc) Update(ctx context.Context, userID, itemID string, req domain.UpdateItemRequest) (*domain.Item, error) {
	args := m.Called(ctx, userID, itemID, req)
	if it, _ := args.Get(0).(*domain.Item); it != nil {
		return it, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockItemSvc) Delete(ctx context.Context, userID, itemID string) error {
	return m.Called(ctx, userID, itemID).Error(0)
}

func (m *mockItemSvc) List(ctx context.Context, filter domain.ItemFilter, page, pageSize int) ([]domain.Item, int, error) {
	args := m.Called(ctx, filter, page, pageSize)
	return args.Get(0).([]domain.Item), args.Int(1), args.Error(2)
}

func (m *mockItemSvc) ListByUser(ctx context.Context, userID string) ([]domain.Item, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Item), args.Error(1)
}

type mockImageSvc struct{ mock.Mock }

func (m *mockImageSvc) AddImages(ctx context.Context, itemID string, files []image.Upload) ([]domain.ItemImage, error) {
	args := m.Called(ctx, itemID, files)
	if imgs, _ := args.Get(0).([]domain.ItemImage); imgs != nil {
		return imgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockImageSvc) RemoveImage(ctx context.Context, itemID, imageID string) error {
	return m.Called(ctx, itemID, imageID).Error(0)
}

func (m *mockImageSvc) ReorderImages(ctx context.Context, itemID string, orderedIDs []string) error {
	return m.Called(ctx, itemID, orderedIDs).Error(0)
}

func (m *mockImageSvc) ListByItem(ctx context.Context, itemID string) ([]domain.ItemImage, error) {
	args := m.Called(ctx, itemID)
	if imgs, _ := args.Get(0).([]domain.ItemImage); imgs != nil {
		return imgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockImageSvc) DeleteAllForItem(ctx context.Context, itemID string) error {
	return m.Called(ctx, itemID).Error(0)
}

var _ item.Service = (*mockItemSvc)(nil)
var _ image.Service = (*mockImageSvc)(nil)

// --- helpers ---

func itemRouter(h *ItemHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/items/", h.List)
	r.Get("/items/{id}/", h.Get)
	r.Delete("/items/{id}/", h.Delete)
	r.Post("/items/{id}/add_image/", h.AddImage)
	r.Delete("/items/{id}/remove-image/{imageID}/", h.RemoveImage)
	r.Put("/items/{id}/reorder-images/", h.ReorderImages)
	return r
}

func multipartImage(t *testing.T, field, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake-image-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func asUser(req *http.Request, userID string) *http.Request {
	claims := &jwtinfra.Claims{UserID: userID, Role: domain.RoleUser}
	ctx := context.WithValue(req.Context(), middleware.ClaimsKey, claims)
	return req.WithContext(ctx)
}

func decodeDetail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env DetailEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env.Detail
}

// --- tests ---

func TestListItems_ParsesFilters(t *testing.T) {
	items := &mockItemSvc{}
	gte := int64(100)
	lte := int64(500)
	items.On("List", mock.Anything, domain.ItemFilter{
		Search:      "bike",
		CategoryID:  "cat1",
		ListingType: "sell",
		PriceGTE:    &gte,
		PriceLTE:    &lte,
	}, 2, 5).Return([]domain.Item{}, 0, nil)

	h := NewItemHandler(items, &mockImageSvc{})
	req := httptest.NewRequest(http.MethodGet,
		"/items/?search=bike&category=cat1&listing_type=sell&price__gte=100&price__lte=500&page=2&page_size=5", nil)
	rr := httptest.NewRecorder()
	itemRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	items.AssertExpectations(t)
}

func TestListItems_BadPriceFilter(t *testing.T) {
	h := NewItemHandler(&mockItemSvc{}, &mockImageSvc{})
	req := httptest.NewRequest(http.MethodGet, "/items/?price__gte=cheap", nil)
	rr := httptest.NewRecorder()
	itemRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetItem_NotFound(t *testing.T) {
	items := &mockItemSvc{}
	items.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	h := NewItemHandler(items, &mockImageSvc{})
	req := httptest.NewRequest(http.MethodGet, "/items/ghost/", nil)
	rr := httptest.NewRecorder()
	itemRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteItem_RequiresAuth(t *testing.T) {
	h := NewItemHandler(&mockItemSvc{}, &mockImageSvc{})
	req := httptest.NewRequest(http.MethodDelete, "/items/i1/", nil)
	rr := httptest.NewRecorder()
	itemRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRemoveImage_NonOwnerGetsForbidden(t *testing.T) {
	items := &mockItemSvc{}
	items.On("Get", mock.Anything, "i1").Return(&domain.Item{ItemID: "i1", UserID: "owner", Status: domain.ItemStatusAvailable}, nil)
	imgs := &mockImageSvc{}

	h := NewItemHandler(items, imgs)
	req := asUser(httptest.NewRequest(http.MethodDelete, "/items/i1/remove-image/img1/", nil), "intruder")
	rr := httptest.NewRecorder()
	itemRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	imgs.AssertNotCalled(t, "RemoveImage", mock.Anything, mock.Anything, mock.Anything)
}

func TestRemoveImage_LastImageDetailMessage(t *testing.T) {
	items := &mockItemSvc{}
	items.On("Get", mock.Anything, "i1").Return(&domain.Item{ItemID: "i1", UserID: "u1", Status: domain.ItemStatusAvailable}, nil)
	imgs := &mockImageSvc{}
	imgs.On("RemoveImage", mock.Anything, "i1", "img1").Return(image.ErrLastImage)

	h := NewItemHandler(items, imgs)
	req := asUser(httptest.NewRequest(http.MethodDelete, "/items/i1/remove-image/img1/", nil), "u1")
	rr := httptest.NewRecorder()
	itemRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Item must have at least one image.", decodeDetail(t, rr))
}

func TestRemoveImage_Success(t *testing.T) {
	items := &mockItemSvc{}
	items.On("Get", mock.Anything, "i1").Return(&domain.Item{ItemID: "i1", UserID: "u1", Status: domain.ItemStatusAvailable}, nil)
	imgs := &mockImageSvc{}
	imgs.On("RemoveImage", mock.Anything, "i1", "img1").Return(nil)

	h := NewItemHandler(items, imgs)
	req := asUser(httptest.NewRequest(http.MethodDelete, "/items/i1/remove-image/img1/", nil), "u1")
	rr := httptest.NewRecorder()
	itemRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	imgs.AssertExpectations(t)
}

func TestReorderImages_BadOrderDetailMessage(t *testing.T) {
	items := &mockItemSvc{}
	items.On("Get", mock.Anything, "i1").Return(&domain.Item{ItemID: "i1", UserID: "u1", Status: domain.ItemStatusAvailable}, nil)
	imgs := &mockImageSvc{}
	imgs.On("ReorderImages", mock.Anything, "i1", []string{"a"}).Return(image.ErrBadOrder)

	h := NewItemHandler(items, imgs)
	body := bytes.NewBufferString(`{"image_order":["a"]}`)
	req := asUser(httptest.NewRequest(http.MethodPut, "/items/i1/reorder-images/", body), "u1")
	rr := httptest.NewRecorder()
	itemRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Please provide the correct order for all images.", decodeDetail(t, rr))
}

func TestAddImage_CapExceededDetailMessage(t *testing.T) {
	items := &mockItemSvc{}
	items.On("Get", mock.Anything, "i1").Return(&domain.Item{ItemID: "i1", UserID: "u1", Status: domain.ItemStatusAvailable}, nil)
	imgs := &mockImageSvc{}
	imgs.On("AddImages", mock.Anything, "i1", mock.Anything).Return(nil, image.ErrTooManyImages)

	h := NewItemHandler(items, imgs)
	body, contentType := multipartImage(t, "image", "fourth.jpg")
	req := asUser(httptest.NewRequest(http.MethodPost, "/items/i1/add_image/", body), "u1")
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	itemRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Item already has the maximum of 3 images.", decodeDetail(t, rr))
}

func TestAddImage_MissingFileDetailMessage(t *testing.T) {
	items := &mockItemSvc{}
	items.On("Get", mock.Anything, "i1").Return(&domain.Item{ItemID: "i1", UserID: "u1", Status: domain.ItemStatusAvailable}, nil)
	imgs := &mockImageSvc{}
	imgs.On("AddImages", mock.Anything, "i1", mock.Anything).Return(nil, image.ErrNoFile)

	h := NewItemHandler(items, imgs)
	body, contentType := multipartImage(t, "unrelated_field", "x.jpg")
	req := asUser(httptest.NewRequest(http.MethodPost, "/items/i1/add_image/", body), "u1")
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	itemRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "No image file provided.", decodeDetail(t, rr))
}

func TestAddImage_Success(t *testing.T) {
	items := &mockItemSvc{}
	items.On("Get", mock.Anything, "i1").Return(&domain.Item{ItemID: "i1", UserID: "u1", Status: domain.ItemStatusAvailable}, nil)
	imgs := &mockImageSvc{}
	imgs.On("AddImages", mock.Anything, "i1", mock.MatchedBy(func(files []image.Upload) bool {
		return len(files) == 1 && files[0].Filename == "second.jpg"
	})).Return([]domain.ItemImage{{ImageID: "img2", Order: 1}}, nil)

	h := NewItemHandler(items, imgs)
	body, contentType := multipartImage(t, "image", "second.jpg")
	req := asUser(httptest.NewRequest(http.MethodPost, "/items/i1/add_image/", body), "u1")
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	itemRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	imgs.AssertExpectations(t)
}

func TestReorderImages_Success(t *testing.T) {
	items := &mockItemSvc{}
	items.On("Get", mock.Anything, "i1").Return(&domain.Item{ItemID: "i1", UserID: "u1", Status: domain.ItemStatusAvailable}, nil)
	imgs := &mockImageSvc{}
	imgs.On("ReorderImages", mock.Anything, "i1", []string{"b", "a"}).Return(nil)

	h := NewItemHandler(items, imgs)
	body := bytes.NewBufferString(`{"image_order":["b","a"]}`)
	req := asUser(httptest.NewRequest(http.MethodPut, "/items/i1/reorder-images/", body), "u1")
	rr := httptest.NewRecorder()
	itemRouter(h).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, rr.Body.Len())
	imgs.AssertExpectations(t)
}
