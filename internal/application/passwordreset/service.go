package passwordreset

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/go-marketplace-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Cache keys are shared with the previous deployment of this flow and must
// not change: otp:{email} holds the 6-digit code, otp_verified:{email} the
// post-verification flag. Both expire server-side after otpTTL.
const (
	otpKeyFmt      = "otp:%s"
	verifiedKeyFmt = "otp_verified:%s"
	otpTTL         = 300 * time.Second
)

// Exported so the transport layer can phrase each failure precisely.
var (
	ErrUnknownAccount = fmt.Errorf("no account exist with this email: %w", domain.ErrBadRequest)

	ErrOTPExpired   = fmt.Errorf("otp has expired or was not found: %w", domain.ErrBadRequest)
	ErrOTPMismatch  = fmt.Errorf("invalid otp: %w", domain.ErrBadRequest)
	ErrNotVerified  = fmt.Errorf("otp not verified or expired: %w", domain.ErrBadRequest)
	ErrSamePassword = fmt.Errorf("new password can't be the same as the old one: %w", domain.ErrBadRequest)
)

type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type Service interface {
	// IssueOTP generates a fresh 6-digit code for the account, stores it with
	// a 300s expiry (replacing any unconsumed one) and mails it out
	// asynchronously. The code is never returned to the caller.
	IssueOTP(ctx context.Context, email string) error
	// VerifyOTP checks the submitted code. On success the code is consumed
	// and a verified flag with its own 300s window is written. A wrong code
	// leaves the stored one intact for further attempts.
	VerifyOTP(ctx context.Context, email, otp string) error
	// ConsumePassword sets the new password for a previously verified email
	// and consumes the verified flag.
	ConsumePassword(ctx context.Context, email, newPassword string) error
}

type ttlCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	cache    ttlCache
	userRepo userStore
	mailer   mailer
}

func NewService(cache ttlCache, userRepo userStore, mailer mailer) Service {
	return &service{cache: cache, userRepo: userRepo, mailer: mailer}
}

func (s *service) IssueOTP(ctx context.Context, email string) error {
	if _, err := s.userRepo.GetByEmail(ctx, email); err != nil {
		// An unknown address is a validation failure to the client, not a 404.
		return ErrUnknownAccount
	}

	otp, err := generateOTP()
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, fmt.Sprintf(otpKeyFmt, email), otp, otpTTL); err != nil {
		return err
	}

	// Mail delivery stays off the request path; failures are logged, not
	// surfaced — the caller only learns that a code was issued.
	go func() {
		body := fmt.Sprintf("Use this code %s to change your password", otp)
		if err := s.mailer.SendEmail(email, "OTP Code to Change Password", body); err != nil {
			slog.Warn("failed to send OTP email", "email", email, "err", err)
		}
	}()
	return nil
}

func (s *service) VerifyOTP(ctx context.Context, email, otp string) error {
	key := fmt.Sprintf(otpKeyFmt, email)
	stored, err := s.cache.Get(ctx, key)
	if err != nil {
		return ErrOTPExpired
	}
	if stored != otp {
		// The stored code survives a failed attempt; it can be retried until
		// it expires naturally.
		return ErrOTPMismatch
	}

	if err := s.cache.Delete(ctx, key); err != nil {
		return err
	}
	return s.cache.Set(ctx, fmt.Sprintf(verifiedKeyFmt, email), "true", otpTTL)
}

func (s *service) ConsumePassword(ctx context.Context, email, newPassword string) error {
	verifiedKey := fmt.Sprintf(verifiedKeyFmt, email)
	if _, err := s.cache.Get(ctx, verifiedKey); err != nil {
		return ErrNotVerified
	}

	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user not found: %w", domain.ErrBadRequest)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(newPassword)) == nil {
		return ErrSamePassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, verifiedKey); err != nil {
		slog.Warn("failed to consume verified flag", "email", email, "err", err)
	}
	return nil
}

// generateOTP draws each of the six digits independently from a
// cryptographically strong source, so leading zeros are preserved.
func generateOTP() (string, error) {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%d", n.Int64())
	}
	return b.String(), nil
}
