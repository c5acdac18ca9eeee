package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/salespulse/salespulse/internal/app"
	"github.com/salespulse/salespulse/internal/dashboard"
	dashhttp "github.com/salespulse/salespulse/internal/dashboard/http"
	"github.com/salespulse/salespulse/internal/observability"
	"github.com/salespulse/salespulse/internal/relay"
	"github.com/salespulse/salespulse/internal/rollup"
	"github.com/salespulse/salespulse/internal/upstream"
	"github.com/salespulse/salespulse/jobs"
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	loc, err := time.LoadLocation(cfg.DashTimeZone)
	if err != nil {
		logger.Warn("load dashboard timezone, falling back to UTC",
			slog.String("tz", cfg.DashTimeZone), slog.Any("error", err))
		loc = time.UTC
	}

	upstreamClient := upstream.NewClient(cfg.UpstreamAPIBase, cfg.UpstreamClientTag, cfg.UpstreamTimeout)
	dashCache := dashboard.NewCache(redisClient, cfg.DashCacheTTL)
	dashService := dashboard.NewService(upstreamClient, dashCache, rollup.NewBucketer(loc), logger)
	dashHandler := dashhttp.NewHandler(logger, dashService)

	relayHandler := relay.NewHandler(logger, cfg.UpstreamAPIBase, cfg.UpstreamClientTag, cfg.UpstreamTimeout)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		RelayHandler:     relayHandler,
		DashboardHandler: dashHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
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
