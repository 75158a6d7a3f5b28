package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/clared/storefront/internal/domain/product"
)

const productColumns = `id, sku, name, description, category, tags, price,
		stock_quantity, is_available, image_url, created_at, updated_at`

const (
	getProductByIDSQL  = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	getProductBySKUSQL = `SELECT ` + productColumns + ` FROM products WHERE sku = $1`

	insertProductSQL = `INSERT INTO products
		(id, sku, name, description, category, tags, price, stock_quantity, is_available, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	updateProductSQL = `UPDATE products SET
		name = $2, description = $3, category = $4, tags = $5, price = $6,
		stock_quantity = $7, is_available = $8, image_url = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	// The reference API reports the whole-collection count on every listing,
	// ignoring active filters. totalPages derived from it is therefore wrong
	// under a narrowed result set; this is reproduced deliberately.
	countProductsSQL = `SELECT count(*) FROM products`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// buildListSQL renders a ListQuery into one SELECT. Filters are conjunctive:
// availability, category equality, and a case-insensitive partial match of the
// search term against name or SKU. Creation-time-descending ordering applies
// only when no search term is present; searches keep the store's natural
// order.
func buildListSQL(q product.ListQuery) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString(`SELECT ` + productColumns + ` FROM products`)

	var conds []string
	if q.AvailableOnly {
		conds = append(conds, "is_available = TRUE")
	}
	if q.Category != "" {
		args = append(args, q.Category)
		conds = append(conds, "category = $"+strconv.Itoa(len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		n := strconv.Itoa(len(args))
		conds = append(conds, "(name ILIKE $"+n+" OR sku ILIKE $"+n+")")
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	if q.Search == "" {
		b.WriteString(" ORDER BY created_at DESC")
	}

	args = append(args, q.Limit)
	b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	args = append(args, q.Offset())
	b.WriteString(" OFFSET $" + strconv.Itoa(len(args)))

	return b.String(), args
}

// List executes one listing plan and the collection count concurrently and
// assembles the page metadata.
func (r *ProductRepository) List(ctx context.Context, q product.ListQuery) (*product.Page, error) {
	var (
		items []product.Product
		total int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sql, args := buildListSQL(q)
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("listing products: %w", err)
		}
		items, err = pgx.CollectRows(rows, scanProduct)
		return err
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(ctx, countProductsSQL).Scan(&total); err != nil {
			return fmt.Errorf("counting products: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &product.Page{
		Items:      items,
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: ceilDiv(total, q.Limit),
	}, nil
}

// GetByID returns a single product by its internal identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return r.getOne(ctx, getProductByIDSQL, id)
}

// GetBySKU returns a single product by its public code.
func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	return r.getOne(ctx, getProductBySKUSQL, sku)
}

func (r *ProductRepository) getOne(ctx context.Context, sql, key string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, sql, key)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", key, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", key, err)
	}
	return &p, nil
}

// Create inserts a new product. A SKU collision maps to ErrDuplicateSKU.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, insertProductSQL,
		p.ID, p.SKU, p.Name, p.Description, p.Category, p.Tags,
		p.Price, p.StockQuantity, p.IsAvailable, p.ImageURL,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return product.ErrDuplicateSKU
		}
		return fmt.Errorf("creating product %q: %w", p.SKU, err)
	}
	return nil
}

// Update replaces the mutable fields of an existing product. ID and SKU are
// immutable and never written.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Category, p.Tags,
		p.Price, p.StockQuantity, p.IsAvailable, p.ImageURL,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.ErrNotFound
		}
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	return nil
}

// Delete hard-deletes a product; there is no tombstone.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.Tags,
		&price, &p.StockQuantity, &p.IsAvailable, &p.ImageURL,
		&p.CreatedAt, &p.UpdatedAt,
	)
	p.Price = price
	return p, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func ceilDiv(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
