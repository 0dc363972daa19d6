package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/bali-malayali/bali-malayali/internal/agents"
	"github.com/bali-malayali/bali-malayali/internal/app"
	"github.com/bali-malayali/bali-malayali/internal/catalog"
	"github.com/bali-malayali/bali-malayali/internal/fx"
	jobmetrics "github.com/bali-malayali/bali-malayali/internal/jobs"
	"github.com/bali-malayali/bali-malayali/internal/notify"
	"github.com/bali-malayali/bali-malayali/internal/platform/cache"
	"github.com/bali-malayali/bali-malayali/internal/platform/db"
	"github.com/bali-malayali/bali-malayali/internal/quotes"
	"github.com/bali-malayali/bali-malayali/internal/settings"
	"github.com/bali-malayali/bali-malayali/internal/shared"
	"github.com/bali-malayali/bali-malayali/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, settings cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	// Expiry needs the full pricing service because a transition writes
	// history and events like any other. Pricing dependencies come along.
	fxRepo := fx.NewRepository(pool)
	settingsService := settings.NewService(settings.NewRepository(pool), redisClient, cfg.SettingsCacheTTL)
	catalogService := catalog.NewService(catalog.NewRepository(pool), shared.NewAuditLogger(pool))
	agentsService := agents.NewService(agents.NewRepository(pool))
	quotesService := quotes.NewService(quotes.NewRepository(pool), catalogService, settingsService, fxRepo, agentsService, cfg.QuoteValidity, logger)

	dispatcher := notify.NewDispatcher(cfg.NotifyWebhookURL, logger)
	jobMetrics := jobmetrics.NewMetrics(nil)

	expireHandler := func(ctx context.Context, _ *asynq.Task) error {
		n, err := quotesService.ExpireDue(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("expired overdue quotes", slog.Int("count", n))
			jobMetrics.AddExpired(n)
		}
		return nil
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Metrics:   jobMetrics,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeNotify, Handler: dispatcher.HandleTask},
			{Type: jobs.TaskTypeQuoteExpiry, Handler: expireHandler},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@every 10m", Task: jobs.NewQuoteExpiryTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
