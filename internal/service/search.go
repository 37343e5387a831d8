package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/query"
	"github.com/utafrali/catalog-search/pkg/logger"
)

const tracerName = "github.com/utafrali/catalog-search/internal/service"

// SearchService implements hybrid product search: the index ranks results
// and the relational store answers when the index cannot.
type SearchService struct {
	executor  *Executor
	fallback  *FallbackFilter
	assembler *Assembler
	rules     []query.Rule
	metrics   *Metrics
	logger    *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(executor *Executor, fallback *FallbackFilter, assembler *Assembler, metrics *Metrics, logger *slog.Logger) *SearchService {
	return &SearchService{
		executor:  executor,
		fallback:  fallback,
		assembler: assembler,
		rules:     query.DefaultRules,
		metrics:   metrics,
		logger:    logger,
	}
}

// Search returns one page of products matching req. It fails only when the
// index is unavailable and the relational store fails too.
func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) (_ *domain.SearchResultPage, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "SearchService.Search")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log := logger.WithContext(ctx, s.logger)
	start := time.Now()

	parsed := query.ParseWith(s.rules, req.Text)
	q := query.Build(parsed, req.CategoryID)
	log.DebugContext(ctx, "search query parsed",
		slog.String("raw", req.Text),
		slog.String("text", parsed.Text),
		slog.Bool("match_all", q.MatchAll()),
	)

	switch out := s.executor.Execute(ctx, q, req.Page.Offset, req.Page.PageSize).(type) {
	case IndexHits:
		span.SetAttributes(attribute.String("search.path", PathIndex))
		page, err := s.assembler.Ranked(ctx, out, req.Page)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		s.metrics.searches.WithLabelValues(PathIndex).Inc()
		log.DebugContext(ctx, "search executed",
			slog.String("path", PathIndex),
			slog.Int("total", page.Total),
			slog.Duration("duration", time.Since(start)),
		)
		return page, nil

	case FallbackRequired:
		span.SetAttributes(
			attribute.String("search.path", PathFallback),
			attribute.String("search.fallback_reason", out.Reason),
		)
		s.metrics.fallbacks.WithLabelValues(out.Reason).Inc()
		log.WarnContext(ctx, "search index unavailable, using relational fallback",
			slog.String("reason", out.Reason),
			slog.String("error", out.Cause.Error()),
		)

		products, total, err := s.fallback.Filter(ctx, q, req.Page)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		s.metrics.searches.WithLabelValues(PathFallback).Inc()
		log.DebugContext(ctx, "search executed",
			slog.String("path", PathFallback),
			slog.Int("total", total),
			slog.Duration("duration", time.Since(start)),
		)
		return s.assembler.Materialized(products, total, req.Page), nil

	default:
		return nil, fmt.Errorf("search: unexpected outcome %T", out)
	}
}
