package category

import (
	"context"
	"errors"
	"testing"

	"github.com/go-marketplace-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCategoryStore struct{ mock.Mock }

func (m *mockCategoryStore) Scan(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if cats, _ := args.Get(0).([]domain.Category); cats != nil {
		return cats, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCategoryStore) Get(ctx context.Context, categoryID string) (*domain.Category, error) {
	args := m.Called(ctx, categoryID)
	if c, _ := args.Get(0).(*domain.Category); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCategoryStore) Put(ctx context.Context, c *domain.Category) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockCategoryStore) Update(ctx context.Context, categoryID string, updates map[string]interface{}) error {
	return m.Called(ctx, categoryID, updates).Error(0)
}
func (m *mockCategoryStore) HardDelete(ctx context.Context, categoryID string) error {
	return m.Called(ctx, categoryID).Error(0)
}

func TestCreate_EmptyName(t *testing.T) {
	svc := NewService(&mockCategoryStore{})
	_, err := svc.Create(context.Background(), domain.CategoryInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestCreate_DuplicateNameCaseInsensitive(t *testing.T) {
	store := &mockCategoryStore{}
	store.On("Scan", mock.Anything).Return([]domain.Category{{CategoryID: "c1", Name: "Bikes"}}, nil)

	svc := NewService(store)
	_, err := svc.Create(context.Background(), domain.CategoryInput{Name: "bikes"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCreate_HappyPath(t *testing.T) {
	store := &mockCategoryStore{}
	store.On("Scan", mock.Anything).Return([]domain.Category{}, nil)
	store.On("Put", mock.Anything, mock.MatchedBy(func(c *domain.Category) bool {
		return c.Name == "Bikes" && c.CategoryID != ""
	})).Return(nil)

	svc := NewService(store)
	c, err := svc.Create(context.Background(), domain.CategoryInput{Name: "Bikes"})

	require.NoError(t, err)
	assert.NotEmpty(t, c.CategoryID)
	store.AssertExpectations(t)
}

func TestUpdate_RenamingToOwnNameAllowed(t *testing.T) {
	store := &mockCategoryStore{}
	existing := domain.Category{CategoryID: "c1", Name: "Bikes"}
	store.On("Get", mock.Anything, "c1").Return(&existing, nil)
	store.On("Scan", mock.Anything).Return([]domain.Category{existing}, nil)
	store.On("Update", mock.Anything, "c1", map[string]interface{}{"name": "Bikes"}).Return(nil)

	svc := NewService(store)
	_, err := svc.Update(context.Background(), "c1", domain.CategoryInput{Name: "Bikes"})
	require.NoError(t, err)
}

func TestUpdate_UnknownCategory(t *testing.T) {
	store := &mockCategoryStore{}
	store.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	svc := NewService(store)
	_, err := svc.Update(context.Background(), "ghost", domain.CategoryInput{Name: "Bikes"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDelete_UnknownCategory(t *testing.T) {
	store := &mockCategoryStore{}
	store.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	svc := NewService(store)
	err := svc.Delete(context.Background(), "ghost")

	require.Error(t, err)
	store.AssertNotCalled(t, "HardDelete", mock.Anything, mock.Anything)
}
