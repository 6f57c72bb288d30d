package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agenthive/auth-service/internal/config"
	"github.com/agenthive/auth-service/internal/domain"
	"github.com/agenthive/auth-service/internal/http/handler"
	"github.com/agenthive/auth-service/internal/http/router"
	"github.com/agenthive/auth-service/internal/observability"
	"github.com/agenthive/auth-service/internal/repository"
	"github.com/agenthive/auth-service/internal/security"
	"github.com/agenthive/auth-service/internal/service"
)

const shutdownTimeout = 10 * time.Second

// App holds the assembled service and the handles that need an orderly
// shutdown.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         *redis.Client
	Sessions      repository.SessionRepository
}

// Build wires every component from configuration. The RSA keypair and the
// database are hard requirements; Redis is optional and only gates the
// login throttle.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, runtime *observability.Runtime) (*App, error) {
	keys, err := security.LoadKeypair(cfg.AccessTokenPrivateKeyFile, cfg.AccessTokenPublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("load keypair: %w", err)
	}

	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&domain.User{}, &domain.Session{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	var redisClient *redis.Client
	var abuseGuard service.AuthAbuseGuard
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		abuseGuard = service.NewRedisAuthAbuseGuard(redisClient, "auth-service", service.DefaultAuthAbusePolicy())
	} else {
		logger.Warn("redis address not configured, login throttling disabled")
	}

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	hasher := security.NewBcryptHasher()
	signer := security.NewTokenSigner(keys)

	auth := handler.NewAuthHandler(
		service.NewSignupService(users, hasher),
		service.NewSignInService(users, hasher, abuseGuard),
		service.NewTokenService(signer, security.UUIDTokenSource{}, sessions),
	)

	mux := router.New(router.Dependencies{
		Auth:           auth,
		TokenSigner:    signer,
		Classifier:     security.NewTokenErrorClassifier(),
		AuthRateLimit:  cfg.AuthRateLimitRPM,
		EnableOTelHTTP: cfg.OTELTracesEnabled,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		DB:            db,
		Redis:         redisClient,
		Sessions:      sessions,
	}, nil
}

// Run serves HTTP until the context is cancelled, then drains in-flight
// requests and flushes the observability pipelines.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.Logger.Info("http server draining")
		return a.Server.Shutdown(drainCtx)
	})

	err := g.Wait()
	a.Close()
	return err
}

// Close releases connections and flushes telemetry. Safe to call once after
// Run returns.
func (a *App) Close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("redis close failed", "error", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Warn("database close failed", "error", err)
			}
		}
	}
	if a.Observability != nil {
		if err := a.Observability.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("observability shutdown failed", "error", err)
		}
	}
}

// OpenDatabase opens the configured backend. Postgres is the production
// driver; sqlite backs tests and the maintenance commands.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}
