package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-marketplace-api/internal/application/category"
	"github.com/go-marketplace-api/internal/application/image"
	"github.com/go-marketplace-api/internal/application/item"
	"github.com/go-marketplace-api/internal/application/passwordreset"
	"github.com/go-marketplace-api/internal/application/profile"
	"github.com/go-marketplace-api/internal/application/session"
	"github.com/go-marketplace-api/internal/application/user"
	"github.com/go-marketplace-api/internal/config"
	"github.com/go-marketplace-api/internal/domain"
	"github.com/go-marketplace-api/internal/transport/http/handler"
	appmiddleware "github.com/go-marketplace-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. Route literals keep
// the trailing slashes the existing clients request.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}
	adminOnly := appmiddleware.RequireRole(domain.RoleAdmin)

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	imageSvc := image.NewService(deps.ImageRepo, deps.S3Store)
	itemSvc := item.NewService(deps.ItemRepo, deps.CategoryRepo, imageSvc)
	categorySvc := category.NewService(deps.CategoryRepo)
	userSvc := user.NewService(deps.UserRepo, deps.ProfileRepo, deps.Mailer)
	profileSvc := profile.NewService(deps.ProfileRepo, deps.UserRepo, deps.S3Store)
	refreshTTL := time.Duration(cfg.RefreshTokenExpiryDays) * 24 * time.Hour
	sessionSvc := session.NewService(deps.SessionRepo, deps.UserRepo, deps.JWTProvider, refreshTTL)
	resetSvc := passwordreset.NewService(deps.Cache, deps.UserRepo, deps.Mailer)

	healthH := handler.NewHealthHandler()
	userH := handler.NewUserHandler(userSvc, sessionSvc)
	sessionH := handler.NewSessionHandler(sessionSvc)
	profileH := handler.NewProfileHandler(profileSvc)
	itemH := handler.NewItemHandler(itemSvc, imageSvc)
	categoryH := handler.NewCategoryHandler(categorySvc)
	resetH := handler.NewPasswordResetHandler(resetSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/users/", userH.Register)
		r.With(sensitiveRL.Limit).Post("/sessions/login/", sessionH.Login)
		r.Post("/sessions/refresh/", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/send-otp/", resetH.SendOTP)
		r.With(sensitiveRL.Limit).Post("/verify-otp/", resetH.VerifyOTP)
		r.With(sensitiveRL.Limit).Post("/reset-password/", resetH.ResetPassword)

		r.Get("/items/", itemH.List)
		r.Get("/items/{id}/", itemH.Get)
		r.Get("/categories/", categoryH.List)
		r.Get("/categories/{id}/", categoryH.Get)

		if deps.GoogleVerifier != nil {
			googleH := handler.NewGoogleHandler(deps.GoogleVerifier, userSvc, sessionSvc)
			r.With(sensitiveRL.Limit).Post("/google/validate/", googleH.SignIn)
		}

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/sessions/logout/", sessionH.Logout)
			r.Get("/users/me/", userH.Me)
			r.Delete("/users/me/", userH.Delete)

			r.Get("/profile/", profileH.Get)
			r.Put("/profile/", profileH.Update)
			r.Post("/profile/image/", profileH.UploadAvatar)

			r.Post("/items/", itemH.Create)
			r.Get("/items/users_items/", itemH.ListMine)
			r.Put("/items/{id}/", itemH.Update)
			r.Patch("/items/{id}/", itemH.Update)
			r.Delete("/items/{id}/", itemH.Delete)
			r.Post("/items/{id}/add_image/", itemH.AddImage)
			r.Delete("/items/{id}/remove-image/{imageID}/", itemH.RemoveImage)
			r.Put("/items/{id}/reorder-images/", itemH.ReorderImages)

			// Catalogue mutations are admin-only.
			r.With(adminOnly).Post("/categories/", categoryH.Create)
			r.With(adminOnly).Put("/categories/{id}/", categoryH.Update)
			r.With(adminOnly).Delete("/categories/{id}/", categoryH.Delete)
		})
	})

	return r
}
