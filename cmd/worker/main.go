// Package main is the entrypoint for the FeedPulse queue worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilgowda/feedpulse/internal/analyzer"
	"github.com/nikhilgowda/feedpulse/internal/config"
	"github.com/nikhilgowda/feedpulse/internal/inference"
	"github.com/nikhilgowda/feedpulse/internal/inference/mock"
	"github.com/nikhilgowda/feedpulse/internal/queue"
	"github.com/nikhilgowda/feedpulse/internal/store"
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
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"sentiment_provider", cfg.Sentiment.Provider,
		"concurrency", cfg.Queue.Concurrency)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	client, err := newInferenceClient(cfg.Sentiment)
	if err != nil {
		return fmt.Errorf("create inference client: %w", err)
	}
	slog.Info("inference client initialized", "provider", client.Name())

	jobs := queue.New(rdb, queue.RetryPolicy{
		MaxAttempts: cfg.Queue.MaxAttempts,
		BaseDelay:   cfg.Queue.BaseDelay,
		Multiplier:  queue.DefaultRetryPolicy.Multiplier,
	})

	worker := queue.NewWorker(jobs,
		analyzer.New(client, cfg.Sentiment.AnalysisBudget),
		store.NewPostgresStore(pool),
		cfg.Queue.Concurrency)

	slog.Info("worker started")
	worker.Run(ctx)
	slog.Info("worker stopped gracefully")
	return nil
}

func newInferenceClient(cfg config.SentimentConfig) (inference.Client, error) {
	switch cfg.Provider {
	case "http":
		return inference.NewHTTPClient(cfg.APIURL, cfg.APIToken, cfg.Timeout), nil
	case "mock":
		return mock.NewClient(), nil
	default:
		return nil, fmt.Errorf("unknown sentiment provider %q: must be one of http, mock", cfg.Provider)
	}
}
