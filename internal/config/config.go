package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"

	pkgconfig "github.com/utafrali/catalog-search/pkg/config"
	"github.com/utafrali/catalog-search/pkg/database"
	"github.com/utafrali/catalog-search/pkg/tracing"
)

// Search engine backends.
const (
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"
)

// Index synchronization modes.
const (
	SyncInline = "inline"
	SyncKafka  = "kafka"
)

// Config holds all configuration for the catalog search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"CATALOG_HTTP_PORT" envDefault:"8000"`
	RequestTimeout  time.Duration `env:"CATALOG_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"CATALOG_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofCIDRs      []string      `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`

	// Per-client limit on /api routes. RATE_LIMIT_RPS=0 disables it.
	RateLimitRPS               float64 `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst             int     `env:"RATE_LIMIT_BURST" envDefault:"100"`
	RateLimitTrustForwardedFor bool    `env:"RATE_LIMIT_TRUST_FORWARDED_FOR" envDefault:"false"`

	// PostgreSQL
	Postgres         database.PostgresConfig `envPrefix:"POSTGRES_"`
	SlowQueryLogging time.Duration           `env:"POSTGRES_SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Elasticsearch
	ElasticsearchURL                string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchUsername           string `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword           string `env:"ELASTICSEARCH_PASSWORD"`
	ElasticsearchInsecureSkipVerify bool   `env:"ELASTICSEARCH_INSECURE_SKIP_VERIFY" envDefault:"false"`
	ElasticsearchIndex              string `env:"ELASTICSEARCH_INDEX" envDefault:"products"`

	// Search engine selection (elasticsearch or memory)
	SearchEngine string        `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
	IndexTimeout time.Duration `env:"SEARCH_INDEX_TIMEOUT" envDefault:"2s"`
	// FallbackTimeout bounds the relational query run when the index fails.
	FallbackTimeout time.Duration `env:"SEARCH_FALLBACK_TIMEOUT" envDefault:"5s"`
	Breaker         BreakerConfig `envPrefix:"SEARCH_BREAKER_"`

	// Index synchronization
	SyncMode         string        `env:"SYNC_MODE" envDefault:"inline"`
	ReindexBatchSize int           `env:"REINDEX_BATCH_SIZE" envDefault:"500"`
	ReindexLockTTL   time.Duration `env:"REINDEX_LOCK_TTL" envDefault:"30m"`
	// ReindexSchedule is a cron spec ("0 3 * * *", "@every 6h") for periodic
	// reindexing inside the server. Empty disables it.
	ReindexSchedule string `env:"REINDEX_SCHEDULE"`

	// Kafka, used when SyncMode is kafka
	KafkaBrokers       []string      `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string        `env:"KAFKA_CONSUMER_GROUP" envDefault:"catalog-search-indexer"`
	IdempotencyTTL     time.Duration `env:"KAFKA_IDEMPOTENCY_TTL" envDefault:"24h"`

	// Redis, optional. When REDIS_HOST is set it backs event dedup and the
	// reindex lock.
	Redis database.RedisConfig `envPrefix:"REDIS_"`

	// OpenTelemetry
	Tracing tracing.Config `envPrefix:"OTEL_"`
}

// BreakerConfig holds the search index circuit breaker settings.
type BreakerConfig struct {
	MaxRequests  uint32        `env:"MAX_REQUESTS" envDefault:"1"`
	Interval     time.Duration `env:"INTERVAL" envDefault:"60s"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"30s"`
	FailureRatio float64       `env:"FAILURE_RATIO" envDefault:"0.5"`
	MinRequests  uint32        `env:"MIN_REQUESTS" envDefault:"5"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.SearchEngine {
	case EngineElasticsearch:
		if _, err := url.ParseRequestURI(c.ElasticsearchURL); err != nil {
			return fmt.Errorf("invalid ELASTICSEARCH_URL %q: %w", c.ElasticsearchURL, err)
		}
		if c.ElasticsearchIndex == "" {
			return fmt.Errorf("ELASTICSEARCH_INDEX is required")
		}
	case EngineMemory:
	default:
		return fmt.Errorf("invalid SEARCH_ENGINE %q: want %s or %s", c.SearchEngine, EngineElasticsearch, EngineMemory)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	if c.IndexTimeout <= 0 {
		return fmt.Errorf("SEARCH_INDEX_TIMEOUT must be positive, got %s", c.IndexTimeout)
	}
	if c.FallbackTimeout <= 0 {
		return fmt.Errorf("SEARCH_FALLBACK_TIMEOUT must be positive, got %s", c.FallbackTimeout)
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("SEARCH_BREAKER_FAILURE_RATIO must be in (0, 1], got %v", c.Breaker.FailureRatio)
	}
	switch c.SyncMode {
	case SyncInline:
	case SyncKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when SYNC_MODE is %s", SyncKafka)
		}
	default:
		return fmt.Errorf("invalid SYNC_MODE %q: want %s or %s", c.SyncMode, SyncInline, SyncKafka)
	}
	if c.ReindexBatchSize < 1 {
		return fmt.Errorf("REINDEX_BATCH_SIZE must be positive, got %d", c.ReindexBatchSize)
	}
	if c.ReindexSchedule != "" {
		if _, err := cron.ParseStandard(c.ReindexSchedule); err != nil {
			return fmt.Errorf("invalid REINDEX_SCHEDULE %q: %w", c.ReindexSchedule, err)
		}
	}
	return nil
}
