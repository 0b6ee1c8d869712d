//	@title			Image Upload Portal API
//	@version		1.0
//	@description	Uploads images to Cloudinary or S3-compatible object storage and serves the resulting gallery.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/Ekansh2006/image-upload-portal/internal/auth"
	"github.com/Ekansh2006/image-upload-portal/internal/config"
	"github.com/Ekansh2006/image-upload-portal/internal/db"
	"github.com/Ekansh2006/image-upload-portal/internal/image"
	"github.com/Ekansh2006/image-upload-portal/internal/logger"
	appMiddleware "github.com/Ekansh2006/image-upload-portal/internal/middleware"
	"github.com/Ekansh2006/image-upload-portal/internal/storage"

	_ "github.com/Ekansh2006/image-upload-portal/docs/swagger"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	// run owns all resource cleanup via defers; exiting through it instead of
	// zap.Fatal ensures the pgx pool closes on startup failure too.
	err = run(cfg, zlog)
	_ = zlog.Sync()
	if err != nil {
		zlog.Error("exiting", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	store, err := newObjectStore(cfg, zlog)
	if err != nil {
		return fmt.Errorf("object storage init: %w", err)
	}

	repo, cleanup, err := newRepository(cfg)
	if err != nil {
		return fmt.Errorf("registry init: %w", err)
	}
	defer cleanup()

	// Wire dependencies: repository → service → handler
	imageSvc := image.NewService(context.Background(), repo, zlog)
	imageHandler := image.NewHandler(imageSvc, store, cfg.MaxUploadMB<<20, zlog)

	authSvc := auth.NewService(cfg.AdminKey, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(zlog))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	if cfg.AdminKey == "" {
		zlog.Warn("no ADMIN_KEY configured: delete endpoint is unprotected")
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/token", authHandler.IssueToken)

		r.Route("/images", func(r chi.Router) {
			r.Get("/", imageHandler.List)
			r.Post("/", imageHandler.Upload)
			r.Post("/source", imageHandler.UploadBySource)
			r.Get("/{id}/url", imageHandler.DeliveryURL)

			r.Group(func(r chi.Router) {
				if cfg.AdminKey != "" {
					r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
				}
				r.Delete("/{id}", imageHandler.Delete)
			})
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for a shutdown signal or a listen error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server listening",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.AppEnv),
			zap.String("uploadBackend", cfg.UploadBackend),
			zap.String("registryBackend", cfg.RegistryBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}
	zlog.Info("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	zlog.Info("server stopped")
	return nil
}

// newObjectStore builds the configured upload backend.
func newObjectStore(cfg *config.Config, zlog *zap.Logger) (storage.ObjectStore, error) {
	switch cfg.UploadBackend {
	case "cloudinary":
		return storage.NewCloudinaryStore(
			nil,
			cfg.CloudinaryAPIBase,
			cfg.CloudinaryCloudName,
			cfg.CloudinaryUploadPreset,
			cfg.CloudinaryFolder,
			cfg.CloudinaryDeliveryBase,
			zlog,
		), nil
	case "bucket":
		return storage.NewBucketStore(
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageBucket,
			cfg.StoragePublicBase,
			cfg.StorageUseSSL,
			zlog,
		)
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.UploadBackend)
	}
}

// newRepository builds the configured registry persistence backend.
func newRepository(cfg *config.Config) (image.Repository, func(), error) {
	switch cfg.RegistryBackend {
	case "postgres":
		pool, err := db.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return image.NewPostgresRepository(pool), pool.Close, nil
	case "file":
		repo, err := image.NewFileRepository(cfg.RegistryFile)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	case "memory":
		return image.NewNopRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown registry backend %q", cfg.RegistryBackend)
	}
}
