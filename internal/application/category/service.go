package category

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-marketplace-api/internal/domain"
	"github.com/go-marketplace-api/internal/pkg/id"
	"github.com/go-marketplace-api/internal/pkg/validate"
)

// Service manages the category catalogue. Reads are public; the transport
// layer restricts mutations to admins.
type Service interface {
	List(ctx context.Context) ([]domain.Category, error)
	Get(ctx context.Context, categoryID string) (*domain.Category, error)
	Create(ctx context.Context, in domain.CategoryInput) (*domain.Category, error)
	Update(ctx context.Context, categoryID string, in domain.CategoryInput) (*domain.Category, error)
	Delete(ctx context.Context, categoryID string) error
}

type categoryStore interface {
	Scan(ctx context.Context) ([]domain.Category, error)
	Get(ctx context.Context, categoryID string) (*domain.Category, error)
	Put(ctx context.Context, c *domain.Category) error
	Update(ctx context.Context, categoryID string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, categoryID string) error
}

type service struct {
	categories categoryStore
}

func NewService(categories categoryStore) Service {
	return &service{categories: categories}
}

func (s *service) List(ctx context.Context) ([]domain.Category, error) {
	return s.categories.Scan(ctx)
}

func (s *service) Get(ctx context.Context, categoryID string) (*domain.Category, error) {
	return s.categories.Get(ctx, categoryID)
}

func (s *service) Create(ctx context.Context, in domain.CategoryInput) (*domain.Category, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if err := s.ensureNameFree(ctx, in.Name, ""); err != nil {
		return nil, err
	}

	c := &domain.Category{CategoryID: id.New(), Name: in.Name}
	if err := s.categories.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Update(ctx context.Context, categoryID string, in domain.CategoryInput) (*domain.Category, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.categories.Get(ctx, categoryID); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, in.Name, categoryID); err != nil {
		return nil, err
	}

	if err := s.categories.Update(ctx, categoryID, map[string]interface{}{"name": in.Name}); err != nil {
		return nil, err
	}
	return s.categories.Get(ctx, categoryID)
}

func (s *service) Delete(ctx context.Context, categoryID string) error {
	if _, err := s.categories.Get(ctx, categoryID); err != nil {
		return err
	}
	return s.categories.HardDelete(ctx, categoryID)
}

// ensureNameFree rejects a name already used by a different category. The
// catalogue is small, so a scan is acceptable here.
func (s *service) ensureNameFree(ctx context.Context, name, selfID string) error {
	cats, err := s.categories.Scan(ctx)
	if err != nil {
		return err
	}
	for _, c := range cats {
		if c.CategoryID != selfID && strings.EqualFold(c.Name, name) {
			return fmt.Errorf("category %q already exists: %w", name, domain.ErrConflict)
		}
	}
	return nil
}
