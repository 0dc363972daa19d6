package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/bali-malayali/bali-malayali/internal/agents"
	"github.com/bali-malayali/bali-malayali/internal/app"
	"github.com/bali-malayali/bali-malayali/internal/catalog"
	"github.com/bali-malayali/bali-malayali/internal/commissions"
	"github.com/bali-malayali/bali-malayali/internal/fx"
	"github.com/bali-malayali/bali-malayali/internal/notify"
	"github.com/bali-malayali/bali-malayali/internal/observability"
	"github.com/bali-malayali/bali-malayali/internal/payments"
	"github.com/bali-malayali/bali-malayali/internal/platform/cache"
	"github.com/bali-malayali/bali-malayali/internal/platform/db"
	"github.com/bali-malayali/bali-malayali/internal/quotes"
	"github.com/bali-malayali/bali-malayali/internal/settings"
	"github.com/bali-malayali/bali-malayali/internal/shared"
	"github.com/bali-malayali/bali-malayali/jobs"
	"github.com/bali-malayali/bali-malayali/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Redis only backs the settings cache here; the service degrades to
	// direct reads when it is unreachable.
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

	validate := validator.New()
	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	eventSink := notify.NewSink(jobsClient, logger)

	fxRepo := fx.NewRepository(dbpool)
	fxHandler := fx.NewHandler(logger, fxRepo, validate)

	settingsRepo := settings.NewRepository(dbpool)
	settingsService := settings.NewService(settingsRepo, redisClient, cfg.SettingsCacheTTL)
	settingsHandler := settings.NewHandler(logger, settingsService)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo, auditLogger)
	catalogHandler := catalog.NewHandler(logger, catalogService, validate)

	agentsRepo := agents.NewRepository(dbpool)
	agentsService := agents.NewService(agentsRepo)
	agentsHandler := agents.NewHandler(logger, agentsService, validate)

	quotesRepo := quotes.NewRepository(dbpool)
	quotesService := quotes.NewService(quotesRepo, catalogService, settingsService, fxRepo, agentsService, cfg.QuoteValidity, logger)
	quotesService.SetEventSink(eventSink)
	quotesService.SetMetrics(metrics)
	quotesHandler := quotes.NewHandler(logger, quotesService, validate)

	commissionsRepo := commissions.NewRepository(dbpool)
	commissionsService := commissions.NewService(commissionsRepo, quotesRepo, agentsService, settingsService, logger)
	commissionsService.SetEventSink(eventSink)
	commissionsService.SetMetrics(metrics)
	commissionsHandler := commissions.NewHandler(logger, commissionsService)
	quotesService.SetCommissionCreator(commissionsService)

	paymentsRepo := payments.NewRepository(dbpool)
	paymentsService := payments.NewService(paymentsRepo, quotesService, fxRepo, logger)
	paymentsService.SetGateway(payments.NewGateway(cfg.MidtransServerKey, cfg.MidtransEnv))
	paymentsService.SetEventSink(eventSink)
	paymentsService.SetMetrics(metrics)
	paymentsHandler := payments.NewHandler(logger, paymentsService, validate)
	paymentsHandler.SetIdempotencyStore(shared.NewIdempotencyStore(dbpool))

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, quotesService, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterConfig{
		Middleware:  app.MiddlewareConfig{Logger: logger, Config: cfg, Metrics: metrics},
		Metrics:     metrics,
		Quotes:      quotesHandler,
		Payments:    paymentsHandler,
		Commissions: commissionsHandler,
		Catalog:     catalogHandler,
		Agents:      agentsHandler,
		Settings:    settingsHandler,
		Fx:          fxHandler,
		Report:      reportHandler,
		Jobs:        jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
