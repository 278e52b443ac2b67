package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"example.com/cesizen/internal/api"
	"example.com/cesizen/internal/auth"
	"example.com/cesizen/internal/cache"
	"example.com/cesizen/internal/config"
	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/media"
	"example.com/cesizen/internal/observability"
	"example.com/cesizen/internal/outbox"
	"example.com/cesizen/internal/persistence/memory"
	"example.com/cesizen/internal/persistence/migrations"
	persistence "example.com/cesizen/internal/persistence/postgres"
	"example.com/cesizen/internal/seed"
	httptransport "example.com/cesizen/internal/transport/http"
)

// store is satisfied by both the in-memory and the Postgres backends.
type store interface {
	domain.UserRepository
	domain.CategoryRepository
	domain.ResourceRepository
	domain.DiagnosticRepository
	domain.InfoRepository
	domain.ReportRepository
	domain.ReportTargets
	domain.BreathingRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load configuration")
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("cesizen api stopped")
	}
	logger.Info("cesizen api stopped")
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		repo       store
		dispatcher *outbox.Dispatcher
	)
	if cfg.PostgresURL == "" {
		logger.Warn("POSTGRES_URL not set, using the in-memory store")
		repo = memory.NewStore()
	} else {
		if cfg.RunMigrations {
			if err := migrations.Up(cfg.PostgresURL); err != nil {
				return err
			}
		}
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		pg := persistence.NewRepository(pool)
		if err := pg.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		repo = pg

		if cfg.OutboxEnabled {
			producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
			defer producer.Close()
			registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
			dispatcher = outbox.NewDispatcher(pool, producer, registry, logger, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
			go dispatcher.Start(ctx)
		}
	}

	var contentCache cache.Cache = cache.NoopCache{}
	if cfg.RedisAddr != "" {
		redisCache, err := cache.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		contentCache = redisCache
	}
	if cfg.CachePurgeURL != "" {
		contentCache = cache.WithPurge(contentCache, cache.NewHTTPInvalidator(cfg.CachePurgeURL, cfg.CachePurgeToken, cfg.HTTPTimeout))
	}

	svc := api.Services{
		Users:      domain.NewUserService(repo),
		Content:    domain.NewContentService(repo, repo, contentCache, cfg.CacheTTL),
		Diagnostic: domain.NewDiagnosticService(repo, contentCache, cfg.CacheTTL),
		Info:       domain.NewInfoService(repo, repo, contentCache, cfg.CacheTTL),
		Reports:    domain.NewReportService(repo, repo),
		Breathing:  domain.NewBreathingService(repo, contentCache, cfg.CacheTTL),
	}

	if cfg.SeedEnabled {
		data, err := seed.Default()
		if err != nil {
			return err
		}
		err = seed.Run(ctx, seed.Services{
			Users:      svc.Users,
			Content:    svc.Content,
			Diagnostic: svc.Diagnostic,
			Breathing:  svc.Breathing,
		}, data, seed.Options{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword}, logger)
		if err != nil {
			return err
		}
	}

	mediaStore, err := media.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL, cfg.MediaMaxBytes)
	if err != nil {
		return err
	}

	handler := api.NewHandler(svc, api.Options{
		Tokens:      auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.SessionTTL},
		Sessions:    auth.NewSessionManager([]byte(cfg.SessionSecret), cfg.SessionCookie, cfg.SessionTTL, cfg.CookieSecure),
		Limiter:     auth.NewLoginLimiter(cfg.LoginRatePerMinute),
		Media:       mediaStore,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Logger:      logger,
	})

	serverCfg := httptransport.DefaultServerConfig(cfg.HTTPAddress)
	server := httptransport.NewServer(serverCfg, handler.Router())
	err = httptransport.Serve(ctx, server, serverCfg.ShutdownTimeout, logger)

	cancel()
	if dispatcher != nil {
		dispatcher.Wait()
	}
	return err
}
