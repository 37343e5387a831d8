package repository

import (
	"context"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/query"
)

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product and assigns its ID.
	Create(ctx context.Context, product *domain.Product) error

	// Update replaces the writable fields of an existing product.
	Update(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// GetByIDs retrieves the products with the given ids in no particular
	// order. Unknown ids are skipped.
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)

	// ListByCategory returns all products, or only those in categoryID when
	// it is non-nil, ordered by id.
	ListByCategory(ctx context.Context, categoryID *int64) ([]domain.Product, error)

	// FallbackSearch filters products by c without relevance ranking and
	// returns one page ordered by id along with the total match count.
	FallbackSearch(ctx context.Context, c query.Criteria, offset, limit int) ([]domain.Product, int, error)

	// ScanAfter returns up to limit products with id greater than afterID,
	// ordered by id.
	ScanAfter(ctx context.Context, afterID int64, limit int) ([]domain.Product, error)
}

// CategoryRepository defines read access to categories.
type CategoryRepository interface {
	// List returns all categories ordered by id.
	List(ctx context.Context) ([]domain.Category, error)

	// GetByID retrieves a category by its unique identifier.
	GetByID(ctx context.Context, id int64) (*domain.Category, error)

	// NameMap returns every category name keyed by id.
	NameMap(ctx context.Context) (map[int64]string, error)
}
