// Package config centralises configuration parsing for the CesiZen binaries.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config captures runtime configuration values.
type Config struct {
	HTTPAddress    string `env:"HTTP_ADDRESS,default=:8080"`
	MetricsAddress string `env:"METRICS_ADDRESS,default=:9195"`

	PostgresURL   string `env:"POSTGRES_URL"`
	RunMigrations bool   `env:"RUN_MIGRATIONS,default=true"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	CacheTTL        time.Duration `env:"CACHE_TTL,default=5m"`
	CachePurgeURL   string        `env:"CACHE_PURGE_URL"`
	CachePurgeToken string        `env:"CACHE_PURGE_TOKEN"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT,default=5s"`

	KafkaBrokersRaw    string        `env:"KAFKA_BROKERS,default=kafka:9092"`
	SchemaRegistryURL  string        `env:"SCHEMA_REGISTRY_URL,default=http://schema-registry:8081"`
	OutboxEnabled      bool          `env:"OUTBOX_ENABLED,default=false"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL,default=2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE,default=25"`
	ConsumerGroupID    string        `env:"CONSUMER_GROUP_ID,default=cesizen-audit"`
	ConsumerTopicsRaw  string        `env:"CONSUMER_TOPICS,default=cesizen_reports;cesizen_content;cesizen_diagnostics"`

	DLQSchedule   string        `env:"DLQ_SCHEDULE,default=@every 30s"`
	DLQMaxRetries int           `env:"DLQ_MAX_RETRIES,default=5"`
	DLQBaseDelay  time.Duration `env:"DLQ_BASE_DELAY,default=1m"`
	DLQBatchSize  int           `env:"DLQ_BATCH_SIZE,default=50"`

	JWTSecret     string        `env:"JWT_SECRET,default=dev-secret-change-me"`
	JWTIssuer     string        `env:"JWT_ISSUER,default=cesizen.api"`
	SessionTTL    time.Duration `env:"SESSION_TTL,default=24h"`
	SessionSecret string        `env:"SESSION_SECRET,default=dev-session-secret-change-me-32b"`
	SessionCookie string        `env:"SESSION_COOKIE,default=cesizen_session"`
	CookieSecure  bool          `env:"COOKIE_SECURE,default=false"`

	CORSAllowedOriginsRaw string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`

	MediaDir      string `env:"MEDIA_DIR,default=./uploads"`
	MediaBaseURL  string `env:"MEDIA_BASE_URL,default=/uploads"`
	MediaMaxBytes int64  `env:"MEDIA_MAX_BYTES,default=20971520"`

	LoginRatePerMinute int `env:"LOGIN_RATE_PER_MINUTE,default=10"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	SeedEnabled   bool   `env:"SEED_ENABLED,default=true"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// Derived from the raw list values above.
	KafkaBrokers       []string
	ConsumerTopics     []string
	CORSAllowedOrigins []string
}

// Load reads an optional .env file, then environment variables into Config, applying defaults for local dev.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	cfg.KafkaBrokers = splitAndTrim(cfg.KafkaBrokersRaw)
	cfg.ConsumerTopics = splitAndTrim(cfg.ConsumerTopicsRaw)
	cfg.CORSAllowedOrigins = splitAndTrim(cfg.CORSAllowedOriginsRaw)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the binaries cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if len(c.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 bytes")
	}
	if c.OutboxBatchSize <= 0 {
		return errors.New("OUTBOX_BATCH_SIZE must be > 0")
	}
	if c.MediaMaxBytes <= 0 {
		return errors.New("MEDIA_MAX_BYTES must be > 0")
	}
	return nil
}

// splitAndTrim accepts comma or semicolon separated lists.
func splitAndTrim(value string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
