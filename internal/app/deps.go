package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/catalog-search/internal/config"
	"github.com/utafrali/catalog-search/internal/engine"
	esengine "github.com/utafrali/catalog-search/internal/engine/elasticsearch"
	"github.com/utafrali/catalog-search/internal/engine/memory"
	"github.com/utafrali/catalog-search/internal/indexsync"
	"github.com/utafrali/catalog-search/pkg/database"
)

const reindexLockKey = "catalog-search:reindex-lock"

// stores holds the connections shared by the server and the reindex command.
type stores struct {
	pool   *pgxpool.Pool
	engine engine.SearchEngine
	es     *esengine.Engine
	redis  *redis.Client
}

// openStores connects to PostgreSQL, builds the search engine handle and,
// when configured, connects to Redis. Elasticsearch is not contacted here: an
// unreachable cluster must not keep the service from starting.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	pool, err := database.NewPostgresPool(ctx, &cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.Postgres.Host),
		slog.Int("port", cfg.Postgres.Port),
		slog.String("database", cfg.Postgres.DBName),
	)
	s := &stores{pool: pool}

	switch cfg.SearchEngine {
	case config.EngineElasticsearch:
		es, err := esengine.New(esengine.Config{
			URL:                cfg.ElasticsearchURL,
			Username:           cfg.ElasticsearchUsername,
			Password:           cfg.ElasticsearchPassword,
			InsecureSkipVerify: cfg.ElasticsearchInsecureSkipVerify,
			Index:              cfg.ElasticsearchIndex,
		}, logger)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		s.es, s.engine = es, es
		logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
	default:
		s.engine = memory.New()
		logger.Info("in-memory search engine initialized")
	}

	if cfg.Redis.Enabled() {
		client, err := database.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		s.redis = client
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis.Addr()))
	}

	return s, nil
}

// reindexLock is shared through Redis when available so only one reindex
// runs across all instances.
func (s *stores) reindexLock(cfg *config.Config) indexsync.Lock {
	if s.redis != nil {
		return indexsync.NewRedisLock(s.redis, reindexLockKey, cfg.ReindexLockTTL)
	}
	return indexsync.NewLocalLock()
}

func (s *stores) close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	s.pool.Close()
}
