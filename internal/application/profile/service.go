package profile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/go-marketplace-api/internal/domain"
	"github.com/go-marketplace-api/internal/pkg/id"
	"github.com/go-marketplace-api/internal/pkg/validate"
)

// MaxAvatarSize caps profile image uploads at 2 MB.
const MaxAvatarSize = 2 << 20

// View is a profile joined with the identity fields that live on the user
// record.
type View struct {
	UserID      string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Bio         string `json:"bio"`
	Location    string `json:"location"`
	PhoneNumber string `json:"phone_number"`
	ImageURL    string `json:"image"`
}

// AvatarUpload is an incoming profile image. Size must be the exact byte
// length of the payload, known up front from the multipart header.
type AvatarUpload struct {
	Reader      io.Reader
	Filename    string
	Size        int64
	ContentType string
}

type Service interface {
	Get(ctx context.Context, userID string) (*View, error)
	// Update applies a partial edit. Name fields land on the user record, the
	// rest on the profile.
	Update(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*View, error)
	// UploadAvatar stores a new profile image and replaces the previous one in
	// the object store.
	UploadAvatar(ctx context.Context, userID string, up AvatarUpload) (*View, error)
}

type profileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	profiles profileStore
	users    userStore
	store    objectStore
}

func NewService(profiles profileStore, users userStore, store objectStore) Service {
	return &service{profiles: profiles, users: users, store: store}
}

func (s *service) Get(ctx context.Context, userID string) (*View, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newView(u, p), nil
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*View, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	userUpdates := map[string]interface{}{}
	if req.FirstName != nil {
		userUpdates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		userUpdates["last_name"] = *req.LastName
	}

	profileUpdates := map[string]interface{}{}
	if req.Bio != nil {
		profileUpdates["bio"] = *req.Bio
	}
	if req.Location != nil {
		profileUpdates["location"] = *req.Location
	}
	if req.PhoneNumber != nil {
		profileUpdates["phone_number"] = *req.PhoneNumber
	}

	if len(userUpdates) == 0 && len(profileUpdates) == 0 {
		return nil, fmt.Errorf("no fields to update: %w", domain.ErrBadRequest)
	}

	if len(userUpdates) > 0 {
		if err := s.users.Update(ctx, userID, userUpdates); err != nil {
			return nil, err
		}
	}
	if len(profileUpdates) > 0 {
		if err := s.profiles.Update(ctx, userID, profileUpdates); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, userID)
}

func (s *service) UploadAvatar(ctx context.Context, userID string, up AvatarUpload) (*View, error) {
	if up.Reader == nil {
		return nil, fmt.Errorf("no image file provided: %w", domain.ErrBadRequest)
	}
	if up.Size > MaxAvatarSize {
		return nil, fmt.Errorf("image exceeds the 2MB size limit: %w", domain.ErrBadRequest)
	}
	ext := strings.ToLower(path.Ext(up.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif":
	default:
		return nil, fmt.Errorf("unsupported image type %q: %w", ext, domain.ErrBadRequest)
	}

	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("accounts/%s/profile/%s%s", userID, id.New(), ext)
	url, err := s.store.Upload(ctx, key, up.Reader, up.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	if err := s.profiles.Update(ctx, userID, map[string]interface{}{
		"image_url": url,
		"image_key": key,
	}); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			slog.Warn("orphaned avatar after failed profile update", "key", key, "err", delErr)
		}
		return nil, err
	}

	// The old object is only garbage once the record points at the new one.
	if p.ImageKey != "" && p.ImageKey != key {
		if err := s.store.Delete(ctx, p.ImageKey); err != nil {
			slog.Warn("could not delete previous avatar", "key", p.ImageKey, "err", err)
		}
	}
	return s.Get(ctx, userID)
}

func newView(u *domain.User, p *domain.Profile) *View {
	return &View{
		UserID:      u.UserID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Bio:         p.Bio,
		Location:    p.Location,
		PhoneNumber: p.PhoneNumber,
		ImageURL:    p.ImageURL,
	}
}
