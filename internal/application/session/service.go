package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-marketplace-api/internal/domain"
	"github.com/go-marketplace-api/internal/pkg/id"
	pkgtoken "github.com/go-marketplace-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	Bearer       string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

type Service interface {
	// Login checks the credentials, opens a session and returns a signed
	// bearer plus an opaque refresh token.
	Login(ctx context.Context, email, password string) (*TokenPair, *domain.Session, error)
	// Open starts a session for an already-authenticated user, e.g. after a
	// verified Google sign-in.
	Open(ctx context.Context, u *domain.User) (*TokenPair, *domain.Session, error)
	// Refresh rotates the refresh token and issues a fresh bearer. The old
	// refresh token is dead afterwards.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	// Logout disables the session; its tokens stop working.
	Logout(ctx context.Context, sessionID string) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type tokenSigner interface {
	Sign(userID, role, sessionID string) (string, error)
}

type service struct {
	sessions   sessionStore
	users      userStore
	signer     tokenSigner
	refreshTTL time.Duration
}

func NewService(sessions sessionStore, users userStore, signer tokenSigner, refreshTTL time.Duration) Service {
	return &service{sessions: sessions, users: users, signer: signer, refreshTTL: refreshTTL}
}

func (s *service) Login(ctx context.Context, email, password string) (*TokenPair, *domain.Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.Enable {
		return nil, nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return s.Open(ctx, u)
}

func (s *service) Open(ctx context.Context, u *domain.User) (*TokenPair, *domain.Session, error) {
	refresh, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refresh,
		RefreshExpiresAt: now.Add(s.refreshTTL).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
		User:             u,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, nil, err
	}

	bearer, err := s.signer.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return nil, nil, err
	}
	return &TokenPair{Bearer: bearer, RefreshToken: refresh}, sess, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	sess, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session closed: %w", domain.ErrUnauthorized)
	}
	if time.Now().Unix() > sess.RefreshExpiresAt {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}

	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}

	newRefresh, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	newExpiry := time.Now().UTC().Add(s.refreshTTL).Unix()
	if err := s.sessions.RotateRefreshToken(ctx, sess.SessionID, newRefresh, newExpiry); err != nil {
		return nil, err
	}

	bearer, err := s.signer.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Bearer: bearer, RefreshToken: newRefresh}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return err
	}
	return s.sessions.Update(ctx, sessionID, map[string]interface{}{"enable": false})
}
