package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
	"github.com/utafrali/catalog-search/internal/query"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func testExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Timeout: 200 * time.Millisecond,
		Breaker: BreakerConfig{
			MaxRequests:  1,
			Timeout:      time.Minute,
			FailureRatio: 0.5,
			MinRequests:  3,
		},
	}
}

func newProduct(id, categoryID int64, name, description, price string) domain.Product {
	return domain.Product{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       decimal.RequireFromString(price),
		Quantity:    1,
		CategoryID:  categoryID,
	}
}

// memProducts is an in-memory repository.ProductRepository.
type memProducts struct {
	mu       sync.Mutex
	products map[int64]domain.Product
	nextID   int64
	err      error
	reads    int
}

func newMemProducts(products ...domain.Product) *memProducts {
	m := &memProducts{products: map[int64]domain.Product{}, nextID: 1}
	for _, p := range products {
		m.products[p.ID] = p
		m.nextID = max(m.nextID, p.ID+1)
	}
	return m
}

func (m *memProducts) Create(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	p.ID = m.nextID
	m.nextID++
	m.products[p.ID] = *p
	return nil
}

func (m *memProducts) Update(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[p.ID]; !ok {
		return apperrors.NotFound("product", p.ID)
	}
	m.products[p.ID] = *p
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

// GetByIDs returns matches in ascending id order, like an unordered store read.
func (m *memProducts) GetByIDs(_ context.Context, ids []int64) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memProducts) ListByCategory(_ context.Context, categoryID *int64) ([]domain.Product, error) {
	return m.filter(query.Criteria{CategoryID: categoryID})
}

func (m *memProducts) FallbackSearch(_ context.Context, c query.Criteria, offset, limit int) ([]domain.Product, int, error) {
	all, err := m.filter(c)
	if err != nil {
		return nil, 0, err
	}
	start := min(offset, len(all))
	end := min(start+limit, len(all))
	return all[start:end], len(all), nil
}

func (m *memProducts) ScanAfter(context.Context, int64, int) ([]domain.Product, error) {
	return nil, errors.ErrUnsupported
}

func (m *memProducts) filter(c query.Criteria) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	text := strings.ToLower(c.Text)
	out := []domain.Product{}
	for _, p := range m.products {
		if text != "" && !strings.Contains(strings.ToLower(p.Name), text) &&
			!strings.Contains(strings.ToLower(p.Description), text) {
			continue
		}
		if c.CategoryID != nil && p.CategoryID != *c.CategoryID {
			continue
		}
		if c.MinPrice != nil && p.Price.LessThan(*c.MinPrice) {
			continue
		}
		if c.MaxPrice != nil && p.Price.GreaterThan(*c.MaxPrice) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// funcEngine is an engine.SearchEngine whose Search is supplied by the test.
type funcEngine struct {
	search func(ctx context.Context, q query.Query, offset, limit int) (engine.Hits, error)
	calls  atomic.Int32
}

func (e *funcEngine) Search(ctx context.Context, q query.Query, offset, limit int) (engine.Hits, error) {
	e.calls.Add(1)
	return e.search(ctx, q, offset, limit)
}

func (e *funcEngine) Upsert(context.Context, domain.IndexedDocument) error { return nil }
func (e *funcEngine) BulkUpsert(context.Context, []domain.IndexedDocument) ([]engine.BulkFailure, error) {
	return nil, nil
}
func (e *funcEngine) EnsureIndex(context.Context) error { return nil }
func (e *funcEngine) Refresh(context.Context) error     { return nil }
func (e *funcEngine) Ping(context.Context) error        { return nil }

// recordingHook remembers the products it was notified about.
type recordingHook struct {
	mu       sync.Mutex
	products []domain.Product
}

func (h *recordingHook) OnProductWritten(_ context.Context, p *domain.Product) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.products = append(h.products, *p)
}

// ctxProducts fails FallbackSearch once its context is done, like a driver
// honoring query cancellation.
type ctxProducts struct {
	*memProducts
}

func (c ctxProducts) FallbackSearch(ctx context.Context, crit query.Criteria, offset, limit int) ([]domain.Product, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return c.memProducts.FallbackSearch(ctx, crit, offset, limit)
}
