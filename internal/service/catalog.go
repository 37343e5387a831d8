package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/indexsync"
	"github.com/utafrali/catalog-search/internal/repository"
)

// CatalogService implements product writes and catalog listing.
type CatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	hook       indexsync.ProductWriteHook
	logger     *slog.Logger
}

// NewCatalogService creates a catalog service. hook is notified after every
// committed product write.
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	hook indexsync.ProductWriteHook,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		hook:       hook,
		logger:     logger,
	}
}

// CreateProduct stores a new product and notifies the write hook.
func (s *CatalogService) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	var p domain.Product
	in.Apply(&p)

	if err := s.products.Create(ctx, &p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.InfoContext(ctx, "product created",
		slog.Int64("product_id", p.ID),
		slog.Int64("category_id", p.CategoryID),
	)

	s.hook.OnProductWritten(ctx, &p)
	return &p, nil
}

// UpdateProduct replaces the product with id and notifies the write hook.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (*domain.Product, error) {
	p := domain.Product{ID: id}
	in.Apply(&p)

	if err := s.products.Update(ctx, &p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.logger.InfoContext(ctx, "product updated", slog.Int64("product_id", p.ID))

	s.hook.OnProductWritten(ctx, &p)
	return &p, nil
}

// GetProduct returns the product with id.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListProducts returns all products, or those in categoryID when non-nil.
func (s *CatalogService) ListProducts(ctx context.Context, categoryID *int64) ([]domain.Product, error) {
	products, err := s.products.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// ListCategories returns all categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}
