package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/utafrali/catalog-search/internal/config"
	"github.com/utafrali/catalog-search/internal/event"
	handler "github.com/utafrali/catalog-search/internal/handler/http"
	"github.com/utafrali/catalog-search/internal/indexsync"
	"github.com/utafrali/catalog-search/internal/repository/postgres"
	"github.com/utafrali/catalog-search/internal/repository/postgres/migrations"
	"github.com/utafrali/catalog-search/internal/service"
	"github.com/utafrali/catalog-search/pkg/database"
	"github.com/utafrali/catalog-search/pkg/health"
	pkgkafka "github.com/utafrali/catalog-search/pkg/kafka"
	"github.com/utafrali/catalog-search/pkg/middleware"
	"github.com/utafrali/catalog-search/pkg/tracing"
)

// ServiceName identifies this service in logs, traces and metrics.
const ServiceName = "catalog-search"

// App wires together all dependencies and runs the catalog search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	stores         *stores
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	reindexer      *indexsync.Reindexer
	schedule       *indexsync.Schedule
	httpServer     *http.Server
	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracingCfg := cfg.Tracing
	tracingCfg.ServiceName = ServiceName
	tracingCfg.Environment = cfg.Environment
	shutdownTracer, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	database.SetSlowQueryLogging(cfg.SlowQueryLogging, logger)

	if err := database.RunMigrations(migrations.FS, ".", &cfg.Postgres, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		database.NewPoolStatsCollector(st.pool, ServiceName),
	)
	searchMetrics := service.NewMetrics(reg)
	syncMetrics := indexsync.NewMetrics(reg)

	// Build the dependency graph.
	products := postgres.NewProductRepository(st.pool)
	categories := postgres.NewCategoryRepository(st.pool)

	inline := indexsync.NewInline(st.engine, categories, syncMetrics, logger)
	reindexer := indexsync.NewReindexer(st.engine, products, categories, st.reindexLock(cfg),
		cfg.ReindexBatchSize, syncMetrics, logger)

	a := &App{
		cfg:            cfg,
		logger:         logger,
		stores:         st,
		reindexer:      reindexer,
		shutdownTracer: shutdownTracer,
	}

	if cfg.ReindexSchedule != "" {
		a.schedule, err = indexsync.NewSchedule(cfg.ReindexSchedule, reindexer, logger)
		if err != nil {
			st.close()
			return nil, err
		}
	}

	var hook indexsync.ProductWriteHook = inline
	if cfg.SyncMode == config.SyncKafka {
		hook = a.initKafka(reg, inline, syncMetrics)
	}

	searchService := service.NewSearchService(
		service.NewExecutor(st.engine, service.ExecutorConfig{
			Timeout: cfg.IndexTimeout,
			Breaker: service.BreakerConfig{
				MaxRequests:  cfg.Breaker.MaxRequests,
				Interval:     cfg.Breaker.Interval,
				Timeout:      cfg.Breaker.Timeout,
				FailureRatio: cfg.Breaker.FailureRatio,
				MinRequests:  cfg.Breaker.MinRequests,
			},
		}, searchMetrics, logger),
		service.NewFallbackFilter(products, cfg.FallbackTimeout),
		service.NewAssembler(products, searchMetrics, logger),
		searchMetrics,
		logger,
	)
	catalogService := service.NewCatalogService(products, categories, hook, logger)

	// Health checks. The index is optional: search degrades to the database.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return st.pool.Ping(ctx)
	})
	healthHandler.RegisterOptional("search_index", st.engine.Ping)
	if st.redis != nil {
		healthHandler.RegisterOptional("redis", func(ctx context.Context) error {
			return st.redis.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(handler.RouterDeps{
		Search:     searchService,
		Catalog:    catalogService,
		Reindexer:  reindexer,
		Health:     healthHandler,
		Metrics:    middleware.NewHTTPMetrics(reg),
		Gatherer:   reg,
		CORS:       corsCfg,
		PprofCIDRs: cfg.PprofCIDRs,
		RateLimit: middleware.RateLimitConfig{
			RPS:               cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
			TrustForwardedFor: cfg.RateLimitTrustForwardedFor,
		},
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// initKafka builds the producer used as the write hook and the consumer that
// applies queued writes to the index.
func (a *App) initKafka(reg prometheus.Registerer, inline *indexsync.Inline, syncMetrics *indexsync.Metrics) indexsync.ProductWriteHook {
	cfg := a.cfg
	kafkaMetrics := pkgkafka.NewMetrics(reg)

	a.producer = pkgkafka.NewProducer(pkgkafka.ProducerConfig{Brokers: cfg.KafkaBrokers}, kafkaMetrics, a.logger)
	a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, kafkaMetrics, a.logger)

	var store pkgkafka.IdempotencyStore
	if a.stores.redis != nil {
		store = pkgkafka.NewRedisIdempotencyStore(a.stores.redis, ServiceName+":event:", cfg.IdempotencyTTL)
	} else {
		store = pkgkafka.NewMemoryIdempotencyStore(cfg.IdempotencyTTL)
	}

	handle := pkgkafka.IdempotentHandler(store, event.NewHandler(inline, a.logger).Handle,
		kafkaMetrics, event.TopicProductWritten, a.logger)
	a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.KafkaConsumerGroup,
		Topic:   event.TopicProductWritten,
	}, handle, a.dlq, kafkaMetrics, a.logger)

	a.logger.Info("kafka index synchronization initialized",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.String("topic", event.TopicProductWritten),
		slog.String("group", cfg.KafkaConsumerGroup),
	)
	return event.NewPublisher(a.producer, syncMetrics, a.logger)
}

// Run starts the HTTP server and the event consumer, blocking until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	a.prepareIndex(ctx)
	if a.schedule != nil {
		a.schedule.Start()
	}

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	return errors.Join(runErr, a.Shutdown())
}

// prepareIndex creates the index when missing. The in-memory engine starts
// empty, so it is filled from the database in the background.
func (a *App) prepareIndex(ctx context.Context) {
	if a.cfg.SearchEngine == config.EngineMemory {
		if err := a.reindexer.Start(ctx); err != nil {
			a.logger.Warn("initial reindex not started", slog.String("error", err.Error()))
		}
		return
	}

	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.stores.engine.EnsureIndex(ensureCtx); err != nil {
		a.logger.Warn("search index unavailable at startup, serving from database until it recovers",
			slog.String("error", err.Error()),
		)
	}
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.schedule != nil {
		a.schedule.Stop(shutdownCtx)
	}
	// Background reindex runs hold the pool; let them finish first.
	a.reindexer.Wait()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.stores.close()

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// RunReindex rebuilds the search index once from the database and returns
// the report. It is used by the reindex command.
func RunReindex(ctx context.Context, cfg *config.Config, batchSize int, logger *slog.Logger) (*indexsync.ReindexReport, error) {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer st.close()

	categories := postgres.NewCategoryRepository(st.pool)
	reindexer := indexsync.NewReindexer(st.engine, postgres.NewProductRepository(st.pool), categories,
		st.reindexLock(cfg), batchSize, indexsync.NewMetrics(prometheus.NewRegistry()), logger)
	return reindexer.Run(ctx)
}
