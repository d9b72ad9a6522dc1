package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/davidleathers/benefit-auction-backend/internal/api/rest"
	"github.com/davidleathers/benefit-auction-backend/internal/infrastructure/cache"
	"github.com/davidleathers/benefit-auction-backend/internal/infrastructure/config"
	"github.com/davidleathers/benefit-auction-backend/internal/infrastructure/database"
	"github.com/davidleathers/benefit-auction-backend/internal/infrastructure/notification"
	"github.com/davidleathers/benefit-auction-backend/internal/infrastructure/repository"
	"github.com/davidleathers/benefit-auction-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/benefit-auction-backend/internal/metrics"
	"github.com/davidleathers/benefit-auction-backend/internal/service/bidding"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	zapLogger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, &cfg.Database, zapLogger)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.NewClient(&cfg.Redis, zapLogger)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	registry, err := metrics.NewRegistry("benefit-auction-backend")
	if err != nil {
		return err
	}

	dispatcher := notification.NewDispatcher(
		notification.NewLogSender(logger),
		logger,
		cfg.Notification.BufferSize,
		cfg.Notification.Workers,
	)
	dispatcher.Start(ctx)
	defer dispatcher.Close()

	items := repository.NewItemRepository(pool)
	history := repository.NewBidHistoryRepository(pool)

	svc := bidding.NewService(
		items,
		history,
		cache.NewItemLock(redisClient),
		bidding.SystemClock{},
		dispatcher,
		registry,
		logger,
		bidding.Config{
			MaxSaveRetries: cfg.Bidding.MaxSaveRetries,
			RetryBackoff:   cfg.Bidding.RetryBackoff,
			LockTTL:        cfg.Bidding.LockTTL,
			LockWait:       cfg.Bidding.LockWait,
		},
	)

	closer := bidding.NewCloser(svc, items, bidding.SystemClock{}, logger,
		cfg.Auction.CloserInterval, cfg.Auction.CloserBatchSize)
	go func() {
		if err := closer.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("closer stopped", slog.String("error", err.Error()))
		}
	}()

	handler := rest.NewHandler(svc, items, history, bidding.SystemClock{}, logger,
		rest.AuctionDefaults{
			AntiSnipingWindow: cfg.Auction.DefaultAntiSnipingWindow,
			MaxExtensions:     cfg.Auction.DefaultMaxExtensions,
		},
		rest.NewBidderLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize),
	)

	server := rest.NewServer(&cfg.Server, rest.WithObservability(handler.Routes(), logger, registry))

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	logger.Info("api started",
		slog.Int("port", cfg.Server.Port),
		slog.String("environment", cfg.Environment),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}
