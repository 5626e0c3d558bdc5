// Package main is the entrypoint for the binsight reconciliation worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/sandeepmv/binsight/internal/cache"
	"github.com/sandeepmv/binsight/internal/config"
	"github.com/sandeepmv/binsight/internal/provider"
	"github.com/sandeepmv/binsight/internal/queue"
	"github.com/sandeepmv/binsight/internal/reconcile"
	"github.com/sandeepmv/binsight/internal/sink"
	"github.com/sandeepmv/binsight/internal/store"
	"github.com/sandeepmv/binsight/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "cron", cfg.Reconcile.CronSpec, "concurrency", cfg.Reconcile.Concurrency)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	pgStore := store.NewPostgresStore(pool)
	providerClient := provider.NewHTTPClient(cfg.Provider)
	resultSink := sink.NewStoreSink(pgStore, slog.Default())
	coordinator := reconcile.NewCoordinator(pgStore, providerClient, redisCache, resultSink,
		slog.Default(), cfg.Reconcile.Concurrency, cfg.Reconcile.StatusTTL)

	redisOpt, err := asynq.ParseRedisURI(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis URL for queue: %w", err)
	}

	// Scheduler enqueues one reconcile task per cron tick.
	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register(cfg.Reconcile.CronSpec, asynq.NewTask(queue.ReconcileTask, nil)); err != nil {
		return fmt.Errorf("register reconcile schedule: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer scheduler.Shutdown()
	slog.Info("reconcile schedule registered", "cron", cfg.Reconcile.CronSpec)

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Reconcile.Concurrency,
	})
	processor := worker.NewProcessor(coordinator, slog.Default())

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, stopping worker...")
		server.Shutdown()
	}()

	if err := server.Run(processor.Handler()); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}
