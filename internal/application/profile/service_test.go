package profile

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/go-marketplace-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProfileStore struct{ mock.Mock }

func (m *mockProfileStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProfileStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockObjectStore struct{ mock.Mock }

func (m *mockObjectStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	args := m.Called(ctx, key, r, contentType)
	return args.String(0), args.Error(1)
}
func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func baseUser() *domain.User {
	return &domain.User{UserID: "u1", Email: "jane@example.com", FirstName: "Jane", LastName: "Doe", Enable: true}
}

func baseProfile() *domain.Profile {
	return &domain.Profile{UserID: "u1", Bio: "hi", Location: "Springfield"}
}

func avatar(name string, size int64) AvatarUpload {
	return AvatarUpload{Reader: bytes.NewBufferString("img"), Filename: name, Size: size, ContentType: "image/jpeg"}
}

func TestGet_JoinsUserAndProfile(t *testing.T) {
	users := &mockUserStore{}
	users.On("Get", mock.Anything, "u1").Return(baseUser(), nil)
	profiles := &mockProfileStore{}
	profiles.On("Get", mock.Anything, "u1").Return(baseProfile(), nil)

	svc := NewService(profiles, users, &mockObjectStore{})
	v, err := svc.Get(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "Jane", v.FirstName)
	assert.Equal(t, "hi", v.Bio)
}

func TestUpdate_SplitsFieldsAcrossRecords(t *testing.T) {
	users := &mockUserStore{}
	users.On("Get", mock.Anything, "u1").Return(baseUser(), nil)
	users.On("Update", mock.Anything, "u1", map[string]interface{}{"first_name": "Janet"}).Return(nil)
	profiles := &mockProfileStore{}
	profiles.On("Get", mock.Anything, "u1").Return(baseProfile(), nil)
	profiles.On("Update", mock.Anything, "u1", map[string]interface{}{"bio": "new bio"}).Return(nil)

	svc := NewService(profiles, users, &mockObjectStore{})
	first, bio := "Janet", "new bio"
	_, err := svc.Update(context.Background(), "u1", domain.UpdateProfileRequest{FirstName: &first, Bio: &bio})

	require.NoError(t, err)
	users.AssertExpectations(t)
	profiles.AssertExpectations(t)
}

func TestUpdate_NoFields(t *testing.T) {
	svc := NewService(&mockProfileStore{}, &mockUserStore{}, &mockObjectStore{})
	_, err := svc.Update(context.Background(), "u1", domain.UpdateProfileRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestUploadAvatar_TooLarge(t *testing.T) {
	svc := NewService(&mockProfileStore{}, &mockUserStore{}, &mockObjectStore{})
	_, err := svc.UploadAvatar(context.Background(), "u1", avatar("big.jpg", MaxAvatarSize+1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestUploadAvatar_UnsupportedExtension(t *testing.T) {
	svc := NewService(&mockProfileStore{}, &mockUserStore{}, &mockObjectStore{})
	_, err := svc.UploadAvatar(context.Background(), "u1", avatar("resume.pdf", 100))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestUploadAvatar_ReplacesOldObject(t *testing.T) {
	old := baseProfile()
	old.ImageKey = "accounts/u1/profile/old.jpg"
	profiles := &mockProfileStore{}
	profiles.On("Get", mock.Anything, "u1").Return(old, nil).Once()
	profiles.On("Update", mock.Anything, "u1", mock.MatchedBy(func(u map[string]interface{}) bool {
		_, hasURL := u["image_url"]
		_, hasKey := u["image_key"]
		return hasURL && hasKey
	})).Return(nil)

	store := &mockObjectStore{}
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything, "image/jpeg").Return("https://cdn/new.jpg", nil)
	store.On("Delete", mock.Anything, "accounts/u1/profile/old.jpg").Return(nil)

	users := &mockUserStore{}
	users.On("Get", mock.Anything, "u1").Return(baseUser(), nil)
	updated := baseProfile()
	updated.ImageURL = "https://cdn/new.jpg"
	profiles.On("Get", mock.Anything, "u1").Return(updated, nil)

	svc := NewService(profiles, users, store)
	v, err := svc.UploadAvatar(context.Background(), "u1", avatar("new.jpg", 1024))

	require.NoError(t, err)
	assert.Equal(t, "https://cdn/new.jpg", v.ImageURL)
	store.AssertExpectations(t)
	profiles.AssertExpectations(t)
}

func TestUploadAvatar_RecordWriteFails_CleansUpObject(t *testing.T) {
	profiles := &mockProfileStore{}
	profiles.On("Get", mock.Anything, "u1").Return(baseProfile(), nil)
	profiles.On("Update", mock.Anything, "u1", mock.Anything).Return(errors.New("dynamo down"))
	store := &mockObjectStore{}
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("https://cdn/new.jpg", nil)
	store.On("Delete", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(profiles, &mockUserStore{}, store)
	_, err := svc.UploadAvatar(context.Background(), "u1", avatar("new.jpg", 1024))

	require.Error(t, err)
	store.AssertCalled(t, "Delete", mock.Anything, mock.Anything)
}
