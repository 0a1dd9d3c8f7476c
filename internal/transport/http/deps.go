package http

import (
	"github.com/go-marketplace-api/internal/infrastructure/dynamo"
	"github.com/go-marketplace-api/internal/infrastructure/google"
	jwtinfra "github.com/go-marketplace-api/internal/infrastructure/jwt"
	redisinfra "github.com/go-marketplace-api/internal/infrastructure/redis"
	s3infra "github.com/go-marketplace-api/internal/infrastructure/s3"
	"github.com/go-marketplace-api/internal/infrastructure/smtp"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo       *dynamo.UserRepo
	ProfileRepo    *dynamo.ProfileRepo
	ItemRepo       *dynamo.ItemRepo
	ImageRepo      *dynamo.ImageRepo
	CategoryRepo   *dynamo.CategoryRepo
	SessionRepo    *dynamo.SessionRepo
	S3Store        *s3infra.Store
	Cache          *redisinfra.Cache
	Mailer         smtp.Mailer
	JWTProvider    *jwtinfra.Provider
	GoogleVerifier *google.Verifier
}
