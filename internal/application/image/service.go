package image

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-marketplace-api/internal/domain"
	"github.com/go-marketplace-api/internal/pkg/id"
)

// Upload is one incoming image payload.
type Upload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

// Sentinel errors for the image invariants, exported so the transport layer
// can phrase each violation precisely. All wrap a domain sentinel for status
// mapping.
var (
	ErrNoFile        = fmt.Errorf("no image file provided: %w", domain.ErrBadRequest)
	ErrTooManyImages = fmt.Errorf("item already has the maximum of %d images: %w", domain.MaxImagesPerItem, domain.ErrBadRequest)
	ErrLastImage     = fmt.Errorf("item must have at least one image: %w", domain.ErrBadRequest)
	ErrBadOrder      = fmt.Errorf("order list must be a permutation of the item's images: %w", domain.ErrBadRequest)
	ErrNotOwned      = fmt.Errorf("image does not belong to item: %w", domain.ErrNotFound)
)

type Service interface {
	// AddImages uploads the files in input order and appends them to the
	// item's image list. Fails without writing anything when the 3-image cap
	// would be exceeded or no file was provided.
	AddImages(ctx context.Context, itemID string, files []Upload) ([]domain.ItemImage, error)
	// RemoveImage deletes one image and re-sequences the remainder to a dense
	// 0..n-1 order. The last image of an item cannot be removed.
	RemoveImage(ctx context.Context, itemID, imageID string) error
	// ReorderImages applies the given id list as the new display order. The
	// list must be an exact permutation of the item's current image ids;
	// nothing is written otherwise.
	ReorderImages(ctx context.Context, itemID string, orderedIDs []string) error
	// ListByItem returns the item's images sorted by display order.
	ListByItem(ctx context.Context, itemID string) ([]domain.ItemImage, error)
	// DeleteAllForItem removes every image record and remote object of an
	// item. Used when the listing itself is deleted.
	DeleteAllForItem(ctx context.Context, itemID string) error
}

type imageStore interface {
	Put(ctx context.Context, img *domain.ItemImage) error
	Get(ctx context.Context, imageID string) (*domain.ItemImage, error)
	ListByItem(ctx context.Context, itemID string) ([]domain.ItemImage, error)
	SetOrder(ctx context.Context, imageID string, order int) error
	Delete(ctx context.Context, imageID string) error
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	images imageStore
	store  objectStore

	// locks serializes image mutations per item so the dense order invariant
	// holds under concurrent requests to this process.
	locks sync.Map // itemID -> *sync.Mutex
}

func NewService(images imageStore, store objectStore) Service {
	return &service{images: images, store: store}
}

func (s *service) lock(itemID string) func() {
	v, _ := s.locks.LoadOrStore(itemID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *service) AddImages(ctx context.Context, itemID string, files []Upload) ([]domain.ItemImage, error) {
	if len(files) == 0 {
		return nil, ErrNoFile
	}
	defer s.lock(itemID)()

	current, err := s.images.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if len(current)+len(files) > domain.MaxImagesPerItem {
		return nil, ErrTooManyImages
	}

	added := make([]domain.ItemImage, 0, len(files))
	for i, f := range files {
		img := domain.ItemImage{
			ImageID:   id.New(),
			ItemID:    itemID,
			Order:     len(current) + i,
			CreatedAt: time.Now().UTC(),
		}
		key := fmt.Sprintf("items/%s/%s_%s", itemID, img.ImageID, sanitizeFilename(f.Filename))
		contentType := f.ContentType
		if contentType == "" {
			contentType = contentTypeFromName(f.Filename)
		}
		url, err := s.store.Upload(ctx, key, f.Reader, contentType)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		img.ObjectKey = key
		img.ImageURL = url

		if err := s.images.Put(ctx, &img); err != nil {
			// The remote object is already written; try to clean it up so the
			// bucket doesn't accumulate orphans.
			if delErr := s.store.Delete(ctx, key); delErr != nil {
				slog.Warn("orphaned object after failed image record write", "key", key, "err", delErr)
			}
			return added, err
		}
		added = append(added, img)
	}
	return added, nil
}

func (s *service) RemoveImage(ctx context.Context, itemID, imageID string) error {
	defer s.lock(itemID)()

	img, err := s.images.Get(ctx, imageID)
	if err != nil {
		return err
	}
	if img.ItemID != itemID {
		return ErrNotOwned
	}

	current, err := s.images.ListByItem(ctx, itemID)
	if err != nil {
		return err
	}
	if len(current) <= domain.MinImagesPerItem {
		return ErrLastImage
	}

	// Best effort: a failed remote delete must not keep the record alive.
	if err := s.store.Delete(ctx, img.ObjectKey); err != nil {
		slog.Warn("could not delete remote object", "key", img.ObjectKey, "err", err)
	}
	if err := s.images.Delete(ctx, imageID); err != nil {
		return err
	}

	// Re-sequence the survivors, preserving relative order.
	pos := 0
	for _, other := range current {
		if other.ImageID == imageID {
			continue
		}
		if other.Order != pos {
			if err := s.images.SetOrder(ctx, other.ImageID, pos); err != nil {
				return err
			}
		}
		pos++
	}
	return nil
}

func (s *service) ReorderImages(ctx context.Context, itemID string, orderedIDs []string) error {
	defer s.lock(itemID)()

	current, err := s.images.ListByItem(ctx, itemID)
	if err != nil {
		return err
	}
	if len(orderedIDs) == 0 || len(orderedIDs) != len(current) {
		return ErrBadOrder
	}

	// Validate the full permutation before touching anything so a bad id
	// can't leave a half-applied order behind.
	byID := make(map[string]domain.ItemImage, len(current))
	for _, img := range current {
		byID[img.ImageID] = img
	}
	seen := make(map[string]bool, len(orderedIDs))
	for _, imageID := range orderedIDs {
		if _, ok := byID[imageID]; !ok {
			return ErrNotOwned
		}
		if seen[imageID] {
			return ErrBadOrder
		}
		seen[imageID] = true
	}

	for i, imageID := range orderedIDs {
		if byID[imageID].Order == i {
			continue
		}
		if err := s.images.SetOrder(ctx, imageID, i); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) ListByItem(ctx context.Context, itemID string) ([]domain.ItemImage, error) {
	return s.images.ListByItem(ctx, itemID)
}

func (s *service) DeleteAllForItem(ctx context.Context, itemID string) error {
	defer s.lock(itemID)()

	current, err := s.images.ListByItem(ctx, itemID)
	if err != nil {
		return err
	}
	for _, img := range current {
		if err := s.store.Delete(ctx, img.ObjectKey); err != nil {
			slog.Warn("could not delete remote object", "key", img.ObjectKey, "err", err)
		}
		if err := s.images.Delete(ctx, img.ImageID); err != nil {
			return err
		}
	}
	return nil
}

func contentTypeFromName(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// sanitizeFilename strips directory components and keeps only safe characters
// (alphanumeric, dot, dash, underscore) to prevent path traversal in S3 keys.
func sanitizeFilename(name string) string {
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if result := b.String(); result != "" && result != "." {
		return result
	}
	return "_"
}
