package item

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-marketplace-api/internal/application/image"
	"github.com/go-marketplace-api/internal/domain"
	"github.com/go-marketplace-api/internal/pkg/id"
	"github.com/go-marketplace-api/internal/pkg/validate"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Service interface {
	// Create publishes a new listing with its initial images (1 to 3, in input
	// order). The listing is not created when the image set is invalid.
	Create(ctx context.Context, userID string, req domain.CreateItemRequest, files []image.Upload) (*domain.Item, error)
	// Get returns a single visible listing with its images. Removed listings
	// behave as if they never existed.
	Get(ctx context.Context, itemID string) (*domain.Item, error)
	// Update applies a partial edit. Only the owner may edit a listing.
	Update(ctx context.Context, userID, itemID string, req domain.UpdateItemRequest) (*domain.Item, error)
	// Delete retires a listing from the feed and drops its images. Only the
	// owner may delete a listing.
	Delete(ctx context.Context, userID, itemID string) error
	// List returns one page of the public feed (available listings, newest
	// first) after applying the filter. The second return is the total match
	// count before paging.
	List(ctx context.Context, filter domain.ItemFilter, page, pageSize int) ([]domain.Item, int, error)
	// ListByUser returns every non-removed listing the user owns, any status.
	ListByUser(ctx context.Context, userID string) ([]domain.Item, error)
}

type itemStore interface {
	Put(ctx context.Context, it *domain.Item) error
	Get(ctx context.Context, itemID string) (*domain.Item, error)
	Update(ctx context.Context, itemID string, updates map[string]interface{}) error
	ListByStatus(ctx context.Context, status string) ([]domain.Item, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Item, error)
}

type categoryStore interface {
	Get(ctx context.Context, categoryID string) (*domain.Category, error)
}

type imageManager interface {
	AddImages(ctx context.Context, itemID string, files []image.Upload) ([]domain.ItemImage, error)
	ListByItem(ctx context.Context, itemID string) ([]domain.ItemImage, error)
	DeleteAllForItem(ctx context.Context, itemID string) error
}

type service struct {
	items      itemStore
	categories categoryStore
	images     imageManager
}

func NewService(items itemStore, categories categoryStore, images imageManager) Service {
	return &service{items: items, categories: categories, images: images}
}

func (s *service) Create(ctx context.Context, userID string, req domain.CreateItemRequest, files []image.Upload) (*domain.Item, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if len(files) < domain.MinImagesPerItem {
		return nil, fmt.Errorf("no image file provided: %w", domain.ErrBadRequest)
	}
	if len(files) > domain.MaxImagesPerItem {
		return nil, fmt.Errorf("item already has the maximum of %d images: %w", domain.MaxImagesPerItem, domain.ErrBadRequest)
	}
	if _, err := s.categories.Get(ctx, req.CategoryID); err != nil {
		return nil, fmt.Errorf("category not found: %w", domain.ErrBadRequest)
	}

	now := time.Now().UTC()
	it := &domain.Item{
		ItemID:      id.New(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		ListingType: req.ListingType,
		Location:    req.Location,
		Status:      domain.ItemStatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.items.Put(ctx, it); err != nil {
		return nil, err
	}

	imgs, err := s.images.AddImages(ctx, it.ItemID, files)
	if err != nil {
		// A listing without images is not publishable; take the record back
		// out of the feed rather than leave it half-created.
		if updErr := s.items.Update(ctx, it.ItemID, map[string]interface{}{"status": domain.ItemStatusRemoved}); updErr != nil {
			slog.Warn("could not retire listing after failed image upload", "item_id", it.ItemID, "err", updErr)
		}
		return nil, err
	}
	it.Images = imgs
	return it, nil
}

func (s *service) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	it, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it.Status == domain.ItemStatusRemoved {
		return nil, fmt.Errorf("item not found: %w", domain.ErrNotFound)
	}
	if err := s.attachImages(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *service) Update(ctx context.Context, userID, itemID string, req domain.UpdateItemRequest) (*domain.Item, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	it, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it.Status == domain.ItemStatusRemoved {
		return nil, fmt.Errorf("item not found: %w", domain.ErrNotFound)
	}
	if it.UserID != userID {
		return nil, fmt.Errorf("not the owner of this item: %w", domain.ErrForbidden)
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.CategoryID != nil {
		if _, err := s.categories.Get(ctx, *req.CategoryID); err != nil {
			return nil, fmt.Errorf("category not found: %w", domain.ErrBadRequest)
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.ListingType != nil {
		updates["listing_type"] = *req.ListingType
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update: %w", domain.ErrBadRequest)
	}

	if err := s.items.Update(ctx, itemID, updates); err != nil {
		return nil, err
	}
	return s.Get(ctx, itemID)
}

func (s *service) Delete(ctx context.Context, userID, itemID string) error {
	it, err := s.items.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if it.Status == domain.ItemStatusRemoved {
		return fmt.Errorf("item not found: %w", domain.ErrNotFound)
	}
	if it.UserID != userID {
		return fmt.Errorf("not the owner of this item: %w", domain.ErrForbidden)
	}

	if err := s.items.Update(ctx, itemID, map[string]interface{}{"status": domain.ItemStatusRemoved}); err != nil {
		return err
	}
	return s.images.DeleteAllForItem(ctx, itemID)
}

func (s *service) List(ctx context.Context, filter domain.ItemFilter, page, pageSize int) ([]domain.Item, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	all, err := s.items.ListByStatus(ctx, domain.ItemStatusAvailable)
	if err != nil {
		return nil, 0, err
	}

	matched := all[:0:0]
	for _, it := range all {
		if matches(it, filter) {
			matched = append(matched, it)
		}
	}
	total := len(matched)

	start := (page - 1) * pageSize
	if start >= total {
		return []domain.Item{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	pageItems := matched[start:end]

	for i := range pageItems {
		if err := s.attachImages(ctx, &pageItems[i]); err != nil {
			return nil, 0, err
		}
	}
	return pageItems, total, nil
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]domain.Item, error) {
	all, err := s.items.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := all[:0:0]
	for _, it := range all {
		if it.Status == domain.ItemStatusRemoved {
			continue
		}
		items = append(items, it)
	}
	for i := range items {
		if err := s.attachImages(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *service) attachImages(ctx context.Context, it *domain.Item) error {
	imgs, err := s.images.ListByItem(ctx, it.ItemID)
	if err != nil {
		return err
	}
	it.Images = imgs
	return nil
}

func matches(it domain.Item, f domain.ItemFilter) bool {
	if f.CategoryID != "" && it.CategoryID != f.CategoryID {
		return false
	}
	if f.ListingType != "" && it.ListingType != f.ListingType {
		return false
	}
	if f.Price != nil && it.Price != *f.Price {
		return false
	}
	if f.PriceGTE != nil && it.Price < *f.PriceGTE {
		return false
	}
	if f.PriceLTE != nil && it.Price > *f.PriceLTE {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(it.Title), q) &&
			!strings.Contains(strings.ToLower(it.Location), q) {
			return false
		}
	}
	return true
}
