package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-marketplace-api/internal/config"
	"github.com/go-marketplace-api/internal/infrastructure/dynamo"
	"github.com/go-marketplace-api/internal/infrastructure/google"
	jwtinfra "github.com/go-marketplace-api/internal/infrastructure/jwt"
	redisinfra "github.com/go-marketplace-api/internal/infrastructure/redis"
	s3infra "github.com/go-marketplace-api/internal/infrastructure/s3"
	"github.com/go-marketplace-api/internal/infrastructure/smtp"
	transporthttp "github.com/go-marketplace-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// Redis backs the OTP flow; the API is unusable without it.
	redisClient, err := redisinfra.NewClient(cfg)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	cache := redisinfra.NewCache(redisClient)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 store.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName, cfg.S3PublicURL)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// Google sign-in (optional — only wired when a client ID is configured).
	var googleVerifier *google.Verifier
	if cfg.GoogleClientID != "" {
		googleVerifier = google.NewVerifier(cfg.GoogleClientID)
	} else {
		log.Println("WARN: GOOGLE_CLIENT_ID not set, google sign-in disabled")
	}

	deps := &transporthttp.Deps{
		UserRepo:       dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		ProfileRepo:    dynamo.NewProfileRepo(dynamoClient, cfg.DynamoTables.Profiles),
		ItemRepo:       dynamo.NewItemRepo(dynamoClient, cfg.DynamoTables.Items),
		ImageRepo:      dynamo.NewImageRepo(dynamoClient, cfg.DynamoTables.ItemImages),
		CategoryRepo:   dynamo.NewCategoryRepo(dynamoClient, cfg.DynamoTables.Categories),
		SessionRepo:    dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		S3Store:        s3Store,
		Cache:          cache,
		Mailer:         mailer,
		JWTProvider:    jwtProvider,
		GoogleVerifier: googleVerifier,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
