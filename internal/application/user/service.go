package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-marketplace-api/internal/domain"
	"github.com/go-marketplace-api/internal/infrastructure/google"
	"github.com/go-marketplace-api/internal/pkg/id"
	"github.com/go-marketplace-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	// Register creates a local account with a blank profile and sends the
	// welcome email in the background.
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	// Get returns an active user by id.
	Get(ctx context.Context, userID string) (*domain.User, error)
	// GoogleSignIn finds or creates the account behind a verified Google
	// identity. An existing local account with the same email is linked to the
	// Google subject instead of duplicated.
	GoogleSignIn(ctx context.Context, payload *google.Payload) (*domain.User, error)
	// SoftDelete disables the account without destroying its records.
	SoftDelete(ctx context.Context, userID string) error
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, userID string) error
}

type profileStore interface {
	Put(ctx context.Context, p *domain.Profile) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	userRepo    userStore
	profileRepo profileStore
	mailer      mailer
}

func NewService(userRepo userStore, profileRepo profileStore, mailer mailer) Service {
	return &service{userRepo: userRepo, profileRepo: profileRepo, mailer: mailer}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         domain.RoleUser,
		AuthProvider: "local",
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, err
	}
	if err := s.profileRepo.Put(ctx, &domain.Profile{UserID: u.UserID, CreatedAt: now, UpdatedAt: now}); err != nil {
		return nil, err
	}

	s.sendWelcome(u)
	return u, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Enable {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return u, nil
}

func (s *service) GoogleSignIn(ctx context.Context, payload *google.Payload) (*domain.User, error) {
	if !payload.EmailVerified {
		return nil, fmt.Errorf("google email not verified: %w", domain.ErrUnauthorized)
	}

	if u, err := s.userRepo.GetByGoogleSub(ctx, payload.Sub); err == nil {
		if !u.Enable {
			return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
		}
		return u, nil
	}

	// Link by email before creating: the person may have registered locally
	// first and only now signed in with Google.
	if u, err := s.userRepo.GetByEmail(ctx, payload.Email); err == nil {
		if !u.Enable {
			return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
		}
		if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{"google_sub": payload.Sub}); err != nil {
			return nil, err
		}
		u.GoogleSub = payload.Sub
		return u, nil
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        payload.Email,
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		Role:         domain.RoleUser,
		AuthProvider: "google",
		GoogleSub:    payload.Sub,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, err
	}
	if err := s.profileRepo.Put(ctx, &domain.Profile{UserID: u.UserID, CreatedAt: now, UpdatedAt: now}); err != nil {
		return nil, err
	}

	s.sendWelcome(u)
	return u, nil
}

func (s *service) SoftDelete(ctx context.Context, userID string) error {
	return s.userRepo.SoftDelete(ctx, userID)
}

func (s *service) sendWelcome(u *domain.User) {
	email, name := u.Email, u.FirstName
	go func() {
		body := fmt.Sprintf("Hi %s, welcome aboard! Your account is ready — log in and post your first listing.", name)
		if err := s.mailer.SendEmail(email, "Welcome to the marketplace", body); err != nil {
			slog.Warn("failed to send welcome email", "email", email, "err", err)
		}
	}()
}
