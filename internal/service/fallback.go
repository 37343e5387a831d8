package service

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/query"
	"github.com/utafrali/catalog-search/internal/repository"
	"github.com/utafrali/catalog-search/pkg/pagination"
)

// DefaultFallbackTimeout bounds a relational fallback query when no timeout
// is configured.
const DefaultFallbackTimeout = 5 * time.Second

// FallbackFilter answers a query from the relational store when the index
// cannot. Results are unranked and ordered by product id.
type FallbackFilter struct {
	products repository.ProductRepository
	timeout  time.Duration
}

// NewFallbackFilter creates a FallbackFilter over products. A non-positive
// timeout uses DefaultFallbackTimeout.
func NewFallbackFilter(products repository.ProductRepository, timeout time.Duration) *FallbackFilter {
	if timeout <= 0 {
		timeout = DefaultFallbackTimeout
	}
	return &FallbackFilter{products: products, timeout: timeout}
}

// Filter returns the page of products matching q, using the same offset and
// page size as the index path.
//
// The query runs on its own budget, detached from the caller's deadline and
// cancellation: the fallback is often reached because that deadline was
// spent waiting on the index.
func (f *FallbackFilter) Filter(ctx context.Context, q query.Query, page pagination.Params) ([]domain.Product, int, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	products, total, err := f.products.FallbackSearch(ctx, q.Criteria(), page.Offset, page.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("fallback filter: %w", err)
	}
	return products, total, nil
}
