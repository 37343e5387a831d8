package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/catalog-search/pkg/health"
	"github.com/utafrali/catalog-search/pkg/middleware"
)

// categoryMaxAge is how long clients may cache the category list.
const categoryMaxAge = 300

// RouterDeps holds everything the router mounts.
type RouterDeps struct {
	Search    searcher
	Catalog   catalog
	Reindexer reindexStarter
	Health    *health.Handler
	Metrics   *middleware.HTTPMetrics
	Gatherer  prometheus.Gatherer
	CORS      middleware.CORSConfig
	// PprofCIDRs enables /debug/pprof for the listed networks when non-empty.
	PprofCIDRs     []string
	RateLimit      middleware.RateLimitConfig
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter creates a chi router with all catalog search routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(deps.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(timeout))
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogging(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	// Health check endpoints
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	if len(deps.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, deps.PprofCIDRs, logger)
	}

	searchHandler := NewSearchHandler(deps.Search, logger)
	productHandler := NewProductHandler(deps.Catalog, logger)
	categoryHandler := NewCategoryHandler(deps.Catalog, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.RateLimit, logger))

		r.Get("/product_search/", searchHandler.Search)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/{id}", productHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(ContentTypeJSON)
				r.Post("/", productHandler.Create)
				r.Put("/{id}", productHandler.Update)
			})
		})

		r.With(middleware.CacheControl(categoryMaxAge)).Get("/categories/", categoryHandler.List)

		if deps.Reindexer != nil {
			adminHandler := NewAdminHandler(deps.Reindexer, logger)
			r.Post("/admin/reindex", adminHandler.Reindex)
		}
	})

	return r
}
