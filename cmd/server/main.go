package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/file-hosting-api/internal/config"
	"github.com/yukikurage/file-hosting-api/internal/database"
	"github.com/yukikurage/file-hosting-api/internal/identity"
	"github.com/yukikurage/file-hosting-api/internal/identity/local"
	"github.com/yukikurage/file-hosting-api/internal/identity/supabase"
	"github.com/yukikurage/file-hosting-api/internal/logging"
	"github.com/yukikurage/file-hosting-api/internal/metrics"
	"github.com/yukikurage/file-hosting-api/internal/repository"
	"github.com/yukikurage/file-hosting-api/internal/server"
	"github.com/yukikurage/file-hosting-api/internal/services"
	"github.com/yukikurage/file-hosting-api/internal/storage"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	if cfg.DBAutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	provider, err := newProvider(cfg, db)
	if err != nil {
		logger.Error("Failed to initialize identity provider", "error", err)
		os.Exit(1)
	}

	store, err := newStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}

	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		logger.Error("Failed to create session store", "error", err)
		os.Exit(1)
	}

	m := metrics.New("")
	profiles := repository.NewProfileRepository(db)
	files := repository.NewFileRepository(db)
	authService := services.NewAuthService(provider, profiles)

	r := server.NewRouter(server.Deps{
		Logger:         logger,
		Provider:       provider,
		AuthService:    authService,
		FileService:    services.NewFileService(files, store, m),
		AdminService:   services.NewAdminService(authService, profiles, provider),
		Store:          store,
		SessionStore:   sessionStore,
		Metrics:        m,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "port", cfg.Port,
			"identity_provider", cfg.IdentityProvider, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Shutting down server", "signal", sig.String())
	case err := <-errCh:
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	logger.Info("Server stopped")
}

func newProvider(cfg *config.Config, db *gorm.DB) (identity.Provider, error) {
	if cfg.IdentityProvider == config.ProviderLocal {
		p := local.New(db, local.Config{
			Secret:     []byte(cfg.JWTSecret),
			AccessTTL:  cfg.AccessTokenTTL,
			RefreshTTL: cfg.RefreshTokenTTL,
			BcryptCost: cfg.BcryptCost,
		})
		if err := p.Migrate(); err != nil {
			return nil, err
		}
		return p, nil
	}

	return supabase.New(supabase.Config{
		URL:            cfg.SupabaseURL,
		AnonKey:        cfg.SupabaseAnonKey,
		ServiceRoleKey: cfg.SupabaseServiceRoleKey,
		Timeout:        cfg.IdentityTimeout,
	}), nil
}

func newStore(cfg *config.Config) (storage.Store, error) {
	if cfg.StorageBackend == config.StorageMinIO {
		s, err := storage.NewMinIOStore(storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// newSessionStore keeps sessions in signed cookies unless REDIS_HOST is set.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	if addr := cfg.RedisAddr(); addr != "" {
		rs, err := redisStore.NewStore(
			10,    // Redis pool size
			"tcp", // network type
			addr,
			"", // password (empty = no password)
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, err
		}
		store = rs
	} else {
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}
