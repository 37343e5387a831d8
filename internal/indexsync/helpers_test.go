package indexsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/query"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func product(id, categoryID int64, name string) domain.Product {
	return domain.Product{
		ID:          id,
		Name:        name,
		Description: name + " description",
		Price:       decimal.NewFromInt(id * 100),
		Quantity:    1,
		CategoryID:  categoryID,
	}
}

// fakeProducts serves ScanAfter from a fixed product list.
type fakeProducts struct {
	mu       sync.Mutex
	products []domain.Product
	scans    int
	scanErr  error
}

func newFakeProducts(products ...domain.Product) *fakeProducts {
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return &fakeProducts{products: products}
}

func (f *fakeProducts) ScanAfter(_ context.Context, afterID int64, limit int) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	out := []domain.Product{}
	for _, p := range f.products {
		if p.ID > afterID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) Create(context.Context, *domain.Product) error { return errors.ErrUnsupported }
func (f *fakeProducts) Update(context.Context, *domain.Product) error { return errors.ErrUnsupported }
func (f *fakeProducts) GetByID(context.Context, int64) (*domain.Product, error) {
	return nil, errors.ErrUnsupported
}
func (f *fakeProducts) GetByIDs(context.Context, []int64) ([]domain.Product, error) {
	return nil, errors.ErrUnsupported
}
func (f *fakeProducts) ListByCategory(context.Context, *int64) ([]domain.Product, error) {
	return nil, errors.ErrUnsupported
}
func (f *fakeProducts) FallbackSearch(context.Context, query.Criteria, int, int) ([]domain.Product, int, error) {
	return nil, 0, errors.ErrUnsupported
}

// fakeCategories resolves names from a map.
type fakeCategories struct {
	names map[int64]string
	err   error
}

func (f *fakeCategories) List(context.Context) ([]domain.Category, error) {
	return nil, errors.ErrUnsupported
}

func (f *fakeCategories) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	name, ok := f.names[id]
	if !ok {
		return nil, apperrors.NotFound("category", id)
	}
	return &domain.Category{ID: id, Name: name}, nil
}

func (f *fakeCategories) NameMap(context.Context) (map[int64]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.names, nil
}
