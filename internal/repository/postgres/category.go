package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/repository"
	"github.com/utafrali/catalog-search/pkg/database"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
)

// categoryColumns is the standard SELECT column list for categories.
const categoryColumns = `id, name, image_url, description, created_at`

// CategoryRepository implements category reads using PostgreSQL.
type CategoryRepository struct {
	pool database.DBTX
}

var _ repository.CategoryRepository = (*CategoryRepository)(nil)

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool database.DBTX) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// List returns all categories ordered by id.
func (r *CategoryRepository) List(ctx context.Context) (_ []domain.Category, err error) {
	q := fmt.Sprintf(`SELECT %s FROM category ORDER BY id ASC`, categoryColumns)

	ctx, end := database.TraceQuery(ctx, "ListCategories", q)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err = scanCategory(rows, &c); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return categories, nil
}

// GetByID retrieves a category by its unique identifier.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (_ *domain.Category, err error) {
	q := fmt.Sprintf(`SELECT %s FROM category WHERE id = $1`, categoryColumns)

	ctx, end := database.TraceQuery(ctx, "GetCategory", q)
	defer func() { end(err) }()

	var c domain.Category
	if err = scanCategory(r.pool.QueryRow(ctx, q, id), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("category", id)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// NameMap returns every category name keyed by id.
func (r *CategoryRepository) NameMap(ctx context.Context) (_ map[int64]string, err error) {
	q := `SELECT id, name FROM category`

	ctx, end := database.TraceQuery(ctx, "CategoryNames", q)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list category names: %w", err)
	}
	defer rows.Close()

	names := make(map[int64]string)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err = rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan category name: %w", err)
		}
		names[id] = name
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category names: %w", err)
	}
	return names, nil
}

func scanCategory(row pgx.Row, c *domain.Category) error {
	return row.Scan(
		&c.ID,
		&c.Name,
		&c.ImageURL,
		&c.Description,
		&c.CreatedAt,
	)
}
