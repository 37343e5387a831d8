// Package indexsync keeps the search index in step with the relational store.
package indexsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
	"github.com/utafrali/catalog-search/internal/repository"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
	"github.com/utafrali/catalog-search/pkg/logger"
)

// ProductWriteHook is notified after a product has been committed to the
// relational store. Implementations must not fail the write: errors are
// handled internally.
type ProductWriteHook interface {
	OnProductWritten(ctx context.Context, p *domain.Product)
}

// inlineTimeout bounds one document upsert triggered by a write.
const inlineTimeout = 5 * time.Second

// Inline writes the index document for a product synchronously.
type Inline struct {
	engine     engine.SearchEngine
	categories repository.CategoryRepository
	metrics    *Metrics
	logger     *slog.Logger
}

var _ ProductWriteHook = (*Inline)(nil)

// NewInline creates an Inline synchronizer.
func NewInline(eng engine.SearchEngine, categories repository.CategoryRepository, metrics *Metrics, logger *slog.Logger) *Inline {
	return &Inline{
		engine:     eng,
		categories: categories,
		metrics:    metrics,
		logger:     logger,
	}
}

// OnProductWritten upserts p's document. Failures are logged and counted.
// The upsert outlives cancellation of ctx since the write is already
// committed.
func (s *Inline) OnProductWritten(ctx context.Context, p *domain.Product) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inlineTimeout)
	defer cancel()

	if err := s.sync(ctx, p, PathInline); err != nil {
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "index synchronization failed",
			slog.Int64("product_id", p.ID),
			slog.String("path", PathInline),
			slog.String("error", err.Error()),
		)
	}
}

// Apply upserts p's document and returns any failure to the caller. It is
// used by the queue consumer, which retries.
func (s *Inline) Apply(ctx context.Context, p *domain.Product) error {
	return s.sync(ctx, p, PathQueue)
}

func (s *Inline) sync(ctx context.Context, p *domain.Product, path string) error {
	name, err := s.categoryName(ctx, p.CategoryID)
	if err != nil {
		s.metrics.failures.WithLabelValues(path).Inc()
		return err
	}

	if err := s.engine.Upsert(ctx, domain.NewIndexedDocument(p, name)); err != nil {
		s.metrics.failures.WithLabelValues(path).Inc()
		return fmt.Errorf("upsert product %d: %w", p.ID, err)
	}
	s.metrics.synced.WithLabelValues(path).Inc()
	return nil
}

// categoryName resolves the category name for a document. An unknown
// category yields an empty name.
func (s *Inline) categoryName(ctx context.Context, id int64) (string, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("resolve category %d: %w", id, err)
	}
	return c.Name, nil
}
