package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/repository"
	"github.com/utafrali/catalog-search/pkg/pagination"
)

// Assembler turns a winning search path's output into a result page.
type Assembler struct {
	products repository.ProductRepository
	metrics  *Metrics
	logger   *slog.Logger
}

// NewAssembler creates an Assembler that rehydrates index hits from products.
func NewAssembler(products repository.ProductRepository, metrics *Metrics, logger *slog.Logger) *Assembler {
	return &Assembler{products: products, metrics: metrics, logger: logger}
}

// Ranked loads the products behind hits in one read and returns them in the
// index's relevance order. Ids the store no longer has are dropped; Total is
// still the index's count.
func (a *Assembler) Ranked(ctx context.Context, hits IndexHits, page pagination.Params) (*domain.SearchResultPage, error) {
	products, err := a.products.GetByIDs(ctx, hits.IDs)
	if err != nil {
		return nil, fmt.Errorf("rehydrate index hits: %w", err)
	}

	ordered, missing := reorder(hits.IDs, products)
	if missing > 0 {
		a.metrics.staleRefs.Add(float64(missing))
		a.logger.DebugContext(ctx, "dropped stale index references",
			slog.Int("missing", missing),
		)
	}
	return newPage(ordered, hits.Total, page), nil
}

// Materialized wraps products that are already in their final order.
func (a *Assembler) Materialized(products []domain.Product, total int, page pagination.Params) *domain.SearchResultPage {
	return newPage(products, total, page)
}

// reorder arranges products in the order of ids and reports how many ids had
// no product.
func reorder(ids []int64, products []domain.Product) ([]domain.Product, int) {
	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	ordered := make([]domain.Product, 0, len(ids))
	missing := 0
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			missing++
			continue
		}
		ordered = append(ordered, p)
	}
	return ordered, missing
}

func newPage(products []domain.Product, total int, page pagination.Params) *domain.SearchResultPage {
	if products == nil {
		products = []domain.Product{}
	}
	return &domain.SearchResultPage{
		Results: products,
		Total:   total,
		Page:    page.Page,
		Pages:   pagination.TotalPages(total, page.PageSize),
	}
}
