package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/query"
	"github.com/utafrali/catalog-search/internal/repository"
	"github.com/utafrali/catalog-search/pkg/database"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
)

// productColumns is the standard SELECT column list for products.
const productColumns = `product_id, name, description, image_url, price, quantity, category_id`

// ProductRepository implements product persistence operations using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product and sets p.ID to the generated key.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	q := `
		INSERT INTO product (name, description, image_url, price, quantity, category_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING product_id`

	ctx, end := database.TraceQuery(ctx, "CreateProduct", q)
	defer func() { end(err) }()

	err = r.pool.QueryRow(ctx, q,
		p.Name,
		p.Description,
		p.ImageURL,
		p.Price,
		p.Quantity,
		p.CategoryID,
	).Scan(&p.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.InvalidInput(fmt.Sprintf("category %d does not exist", p.CategoryID))
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update replaces the writable fields of the product with p.ID.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	q := `
		UPDATE product
		SET name = $1, description = $2, image_url = $3, price = $4, quantity = $5, category_id = $6
		WHERE product_id = $7`

	ctx, end := database.TraceQuery(ctx, "UpdateProduct", q)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, q,
		p.Name,
		p.Description,
		p.ImageURL,
		p.Price,
		p.Quantity,
		p.CategoryID,
		p.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.InvalidInput(fmt.Sprintf("category %d does not exist", p.CategoryID))
		}
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// GetByID retrieves a product by its unique identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (_ *domain.Product, err error) {
	q := fmt.Sprintf(`SELECT %s FROM product WHERE product_id = $1`, productColumns)

	ctx, end := database.TraceQuery(ctx, "GetProduct", q)
	defer func() { end(err) }()

	var p domain.Product
	if err = scanProduct(r.pool.QueryRow(ctx, q, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetByIDs retrieves the products with the given ids in one round trip.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) (_ []domain.Product, err error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	q := fmt.Sprintf(`SELECT %s FROM product WHERE product_id = ANY($1)`, productColumns)

	ctx, end := database.TraceQuery(ctx, "GetProductsByIDs", q)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	return collectProducts(rows)
}

// ListByCategory returns products ordered by id, optionally restricted to
// one category.
func (r *ProductRepository) ListByCategory(ctx context.Context, categoryID *int64) (_ []domain.Product, err error) {
	q := fmt.Sprintf(`SELECT %s FROM product`, productColumns)
	var args []any
	if categoryID != nil {
		q += ` WHERE category_id = $1`
		args = append(args, *categoryID)
	}
	q += ` ORDER BY product_id ASC`

	ctx, end := database.TraceQuery(ctx, "ListProducts", q)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collectProducts(rows)
}

// FallbackSearch filters products by c. Text matches name or description as
// a case-insensitive substring. Results are ordered by id; the total is the
// number of matches before pagination.
func (r *ProductRepository) FallbackSearch(ctx context.Context, c query.Criteria, offset, limit int) (_ []domain.Product, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if c.Text != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+escapeLike(c.Text)+"%")
		argIndex++
	}
	if c.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *c.CategoryID)
		argIndex++
	}
	if c.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *c.MinPrice)
		argIndex++
	}
	if c.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *c.MaxPrice)
		argIndex++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	q := fmt.Sprintf(
		`SELECT %s, count(*) OVER() AS total_count FROM product %s ORDER BY product_id ASC LIMIT $%d OFFSET $%d`,
		productColumns, where, argIndex, argIndex+1,
	)
	args = append(args, limit, offset)

	ctx, end := database.TraceQuery(ctx, "FallbackSearch", q)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("fallback search: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)
	for rows.Next() {
		var p domain.Product
		if err = rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.ImageURL,
			&p.Price,
			&p.Quantity,
			&p.CategoryID,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	// An offset past the last match returns no rows and so no window count.
	if len(products) == 0 && offset > 0 {
		totalCount, err = r.count(ctx, where, args[:len(args)-2])
		if err != nil {
			return nil, 0, err
		}
	}

	return products, totalCount, nil
}

func (r *ProductRepository) count(ctx context.Context, where string, args []any) (int, error) {
	q := `SELECT count(*) FROM product ` + where
	var n int
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// ScanAfter returns the next keyset batch of products after afterID.
func (r *ProductRepository) ScanAfter(ctx context.Context, afterID int64, limit int) (_ []domain.Product, err error) {
	q := fmt.Sprintf(`SELECT %s FROM product WHERE product_id > $1 ORDER BY product_id ASC LIMIT $2`, productColumns)

	ctx, end := database.TraceQuery(ctx, "ScanProducts", q)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, q, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return collectProducts(rows)
}

func scanProduct(row pgx.Row, p *domain.Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.ImageURL,
		&p.Price,
		&p.Quantity,
		&p.CategoryID,
	)
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
