package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recruitment-backend/config"
	_ "recruitment-backend/docs" // Important for Swagger
	v1 "recruitment-backend/internal/delivery/http/v1"
	"recruitment-backend/internal/domain"
	"recruitment-backend/internal/repository/memory"
	"recruitment-backend/internal/repository/postgres"
	"recruitment-backend/internal/usecase"
	"recruitment-backend/pkg/auth"
	"recruitment-backend/pkg/database"
	"recruitment-backend/pkg/logger"
	"recruitment-backend/pkg/metrics"
	redisclient "recruitment-backend/pkg/redis"
	"recruitment-backend/pkg/security"
	"recruitment-backend/pkg/validation"

	goredis "github.com/redis/go-redis/v9"
)

// @title           Recruitment Backend API
// @version         1.0
// @description     Applications, recruiter decisions and accounts for the recruitment system.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Loggers
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting recruitment backend", "port", cfg.Port, "storage", cfg.StorageDriver)

	secLog := security.NewSecurityLogger("recruitment-backend")
	defer secLog.Sync()

	ctx := context.Background()
	healthChecks := map[string]usecase.HealthCheck{}

	// 3. Setup Storage
	var (
		applicationRepo domain.ApplicationRepository
		personRepo      domain.PersonRepository
	)
	switch cfg.StorageDriver {
	case config.StorageMemory:
		store := memory.NewStore()
		applicationRepo, personRepo = store, store
		logger.Log.Warn("Using in-memory storage; data is lost on restart")
	default:
		dbPool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
		if err != nil {
			logger.Log.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()
		applicationRepo = postgres.NewApplicationRepository(dbPool)
		personRepo = postgres.NewPersonRepository(dbPool)
		healthChecks["database"] = dbPool.Ping
	}

	// 4. Setup Redis (optional)
	var redisClient *goredis.Client
	redisClient, err = redisclient.New(ctx, redisclient.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
	switch {
	case errors.Is(err, redisclient.ErrNotConfigured):
		redisClient = nil
	case err != nil:
		logger.Log.Warn("Redis unavailable, falling back to in-memory rate limiting", "error", err)
		redisClient = nil
	default:
		defer redisClient.Close()
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisclient.HealthCheck(ctx, redisClient)
		}
	}

	// 5. Setup Auth
	if cfg.JWTSecret == "" {
		logger.Log.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	loginTracker := security.NewLoginTracker(redisClient, security.LoginTrackerConfig{
		MaxAttempts:   cfg.FailedLoginMaxAttempts,
		AttemptWindow: time.Duration(cfg.FailedLoginBlockMinutes) * time.Minute,
		BlockDuration: time.Duration(cfg.FailedLoginBlockMinutes) * time.Minute,
		UseIPTracking: true,
	}, secLog)

	// 6. Setup UseCases
	m := metrics.New()
	authUC := usecase.NewAuthUsecase(personRepo, tokens, loginTracker, secLog, usecase.AuthConfig{
		BcryptCost:            cfg.BcryptCost,
		LegacyPersonIDCeiling: cfg.LegacyPersonIDCeiling,
	})
	applicationUC := usecase.NewApplicationUsecase(applicationRepo, validation.New(), m, secLog)
	healthUC := usecase.NewHealthUsecase(healthChecks)

	// 7. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		AuthUC:         authUC,
		ApplicationUC:  applicationUC,
		HealthUC:       healthUC,
		Tokens:         tokens,
		SecurityLogger: secLog,
		Metrics:        m,
		Redis:          redisClient,
		RateLimits: v1.RateLimits{
			Window:      cfg.RateLimitWindow(),
			GlobalLimit: cfg.RateLimitGlobalThreshold,
			LoginLimit:  cfg.RateLimitLoginThreshold,
		},
		Cookie: v1.CookieOptions{
			MaxAge: int(tokens.TTL().Seconds()),
			Secure: cfg.CookieSecure,
		},
		AllowedOrigins: []string{cfg.FrontendURL},
	})

	// 8. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
