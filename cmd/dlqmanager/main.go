package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"example.com/cesizen/internal/config"
	"example.com/cesizen/internal/observability"
	"example.com/cesizen/internal/outbox"
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("dlq manager stopped with error")
	}
	logger.Info("dlq manager stopped")
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	manager := outbox.NewDLQManager(pool, logger, cfg.DLQMaxRetries, cfg.DLQBaseDelay)

	// SkipIfStillRunning keeps two sweeps from claiming the same entries.
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = scheduler.AddFunc(cfg.DLQSchedule, func() {
		requeued, err := manager.RunOnce(ctx, cfg.DLQBatchSize)
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			logger.WithError(err).Error("dlq sweep failed")
		case requeued > 0:
			logger.WithField("requeued", requeued).Info("dlq sweep requeued events")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid DLQ_SCHEDULE %q: %w", cfg.DLQSchedule, err)
	}

	logger.WithFields(logrus.Fields{
		"schedule":    cfg.DLQSchedule,
		"max_retries": cfg.DLQMaxRetries,
	}).Info("dlq manager started")
	scheduler.Start()

	metricsCfg := httptransport.DefaultServerConfig(cfg.MetricsAddress)
	err = httptransport.Serve(ctx, httptransport.NewServer(metricsCfg, promhttp.Handler()), metricsCfg.ShutdownTimeout, logger.WithField("server", "metrics"))

	<-scheduler.Stop().Done()
	return err
}
