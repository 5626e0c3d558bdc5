// Package main is the entrypoint for the binsight API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sandeepmv/binsight/internal/api"
	"github.com/sandeepmv/binsight/internal/api/handler"
	mw "github.com/sandeepmv/binsight/internal/api/middleware"
	"github.com/sandeepmv/binsight/internal/cache"
	"github.com/sandeepmv/binsight/internal/config"
	"github.com/sandeepmv/binsight/internal/provider"
	"github.com/sandeepmv/binsight/internal/queue"
	"github.com/sandeepmv/binsight/internal/reconcile"
	"github.com/sandeepmv/binsight/internal/sink"
	"github.com/sandeepmv/binsight/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "provider_base_url", cfg.Provider.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store, provider client, and coordinator
	pgStore := store.NewPostgresStore(pool)
	providerClient := provider.NewHTTPClient(cfg.Provider)
	resultSink := sink.NewStoreSink(pgStore, slog.Default())
	coordinator := reconcile.NewCoordinator(pgStore, providerClient, redisCache, resultSink,
		slog.Default(), cfg.Reconcile.Concurrency, cfg.Reconcile.StatusTTL)

	// 6. Asynq client for on-demand reconcile enqueues
	redisOpt, err := asynq.ParseRedisURI(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis URL for queue: %w", err)
	}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()
	enqueue := func(ctx context.Context) error {
		return queue.EnqueueReconcile(ctx, queueClient)
	}

	// 7. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, 60)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler:        handler.NewHealthHandler(pgStore, redisCache),
		CreateJobHandler:     handler.NewCreateJobHandler(pgStore, enqueue),
		GetJobHandler:        handler.NewGetJobHandler(pgStore),
		JobStatusHandler:     handler.NewJobStatusHandler(pgStore, redisCache),
		ProcessJobHandler:    handler.NewProcessJobHandler(coordinator),
		HistoryHandler:       handler.NewHistoryHandler(pgStore),
		NotificationsHandler: handler.NewNotificationsHandler(pgStore),
		CreateKeyHandler:     handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:      handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler:     handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
