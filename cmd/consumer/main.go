package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"example.com/cesizen/internal/cache"
	"example.com/cesizen/internal/config"
	"example.com/cesizen/internal/consumer"
	"example.com/cesizen/internal/observability"
	httptransport "example.com/cesizen/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load configuration")
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if cfg.PostgresURL == "" {
		logger.Fatal("POSTGRES_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("consumer stopped with error")
	}
	logger.Info("consumer stopped")
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	var invalidator cache.Cache = cache.NoopCache{}
	if cfg.RedisAddr != "" {
		redisCache, err := cache.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		invalidator = redisCache
	}
	if cfg.CachePurgeURL != "" {
		invalidator = cache.WithPurge(invalidator, cache.NewHTTPInvalidator(cfg.CachePurgeURL, cfg.CachePurgeToken, cfg.HTTPTimeout))
	}

	handler := consumer.Chain(
		consumer.NewEventLogHandler(pool),
		consumer.NewCacheInvalidationHandler(invalidator, logger),
	)

	metricsCfg := httptransport.DefaultServerConfig(cfg.MetricsAddress)
	metricsSrv := httptransport.NewServer(metricsCfg, promhttp.Handler())
	go func() {
		if err := httptransport.Serve(ctx, metricsSrv, metricsCfg.ShutdownTimeout, logger.WithField("server", "metrics")); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server error")
		}
	}()

	reader := consumer.NewKafkaReader(cfg.KafkaBrokers, cfg.ConsumerGroupID, cfg.ConsumerTopics)
	defer reader.Close()

	logger.WithFields(logrus.Fields{
		"topics": cfg.ConsumerTopics,
		"group":  cfg.ConsumerGroupID,
	}).Info("consumer started")

	proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(logger))
	return proc.Run(ctx)
}
