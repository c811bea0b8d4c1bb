// Package main is the entrypoint for the FeedPulse API server.
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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilgowda/feedpulse/internal/analyzer"
	"github.com/nikhilgowda/feedpulse/internal/api"
	"github.com/nikhilgowda/feedpulse/internal/cache"
	"github.com/nikhilgowda/feedpulse/internal/config"
	"github.com/nikhilgowda/feedpulse/internal/inference"
	"github.com/nikhilgowda/feedpulse/internal/inference/mock"
	"github.com/nikhilgowda/feedpulse/internal/queue"
	"github.com/nikhilgowda/feedpulse/internal/store"
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
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"sentiment_provider", cfg.Sentiment.Provider, "env", cfg.Server.Env)

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

	// 4. Connect to Redis — one client shared by the queue and the
	// rate-limit cache
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

	// 5. Create inference client and analyzer
	client, err := newInferenceClient(cfg.Sentiment)
	if err != nil {
		return fmt.Errorf("create inference client: %w", err)
	}
	slog.Info("inference client initialized", "provider", client.Name())

	svc := analyzer.New(client, cfg.Sentiment.AnalysisBudget)

	// 6. Create store and queue
	pgStore := store.NewPostgresStore(pool)
	jobs := queue.New(rdb, queue.RetryPolicy{
		MaxAttempts: cfg.Queue.MaxAttempts,
		BaseDelay:   cfg.Queue.BaseDelay,
		Multiplier:  queue.DefaultRetryPolicy.Multiplier,
	})

	// 7. Build router with dependencies
	router := api.NewRouter(api.Dependencies{
		Store:           pgStore,
		Cache:           cache.NewRedisCache(rdb),
		Analyzer:        svc,
		Jobs:            jobs,
		QueueHealth:     queue.NewHealthReporter(jobs),
		RateLimitPerMin: cfg.Server.RateLimitPerMin,
	})

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
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
