// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pagemark/pagemark/internal/api"
	"github.com/pagemark/pagemark/internal/blob"
	"github.com/pagemark/pagemark/internal/docservice"
	"github.com/pagemark/pagemark/internal/mcpserver"
	"github.com/pagemark/pagemark/internal/sse"
	"github.com/pagemark/pagemark/internal/store"
)

// newBlobProvider builds the configured blob backend. For the FS backend the
// uploads directory is created if absent.
func newBlobProvider(ctx context.Context, cfg *Config) (blob.Provider, error) {
	switch cfg.Uploads.Backend {
	case BlobBackendS3:
		return blob.NewS3(ctx, blob.S3Options{
			Endpoint:  cfg.Uploads.S3.Endpoint,
			AccessKey: cfg.Uploads.S3.AccessKey,
			SecretKey: cfg.Uploads.S3.SecretKey,
			Bucket:    cfg.Uploads.S3.Bucket,
			UseSSL:    cfg.Uploads.S3.UseSSL,
		})
	default:
		if err := os.MkdirAll(cfg.Uploads.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create uploads dir: %w", err)
		}
		return blob.NewFS(cfg.Uploads.Path)
	}
}

// openStore opens the SQLite store, creating its parent directory if needed.
func openStore(cfg *Config) (*store.DB, error) {
	if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	return db, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("uploads_backend", cfg.Uploads.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	blobs, err := newBlobProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// SSE broker for document/note change events.
	broker := sse.NewBroker()
	defer broker.Close()

	// Build service and API router.
	svc := docservice.NewService(blobs, db)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.CORSMiddleware())

	registry := prometheus.NewRegistry()
	metricsMw, err := api.MetricsMiddleware(registry)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	r.Use(metricsMw)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the uploads directory for changes made behind the service's back.
	if cfg.Uploads.Backend == BlobBackendFS {
		g.Go(func() error {
			if err := blob.Watch(gCtx, cfg.Uploads.Path, logger, nil); err != nil {
				logger.Warn("uploads watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server over the same service wiring.
// Logs go to stderr because stdout carries the MCP transport.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	blobs, err := newBlobProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := docservice.NewService(blobs, db)

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc).ServeStdio()
}
