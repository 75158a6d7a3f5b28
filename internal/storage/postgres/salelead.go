package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/clared/storefront/internal/domain/salelead"
)

const (
	getLeadByEmailSQL = `SELECT id, email, is_active, created_at, updated_at
		FROM sale_leads WHERE email = $1`

	insertLeadSQL = `INSERT INTO sale_leads (id, email, is_active)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`
)

var leadSortFields = map[string]string{
	"createdAt": "created_at",
	"email":     "email",
}

var _ salelead.Repository = (*SaleLeadRepository)(nil)

// SaleLeadRepository implements salelead.Repository backed by PostgreSQL.
type SaleLeadRepository struct {
	pool *pgxpool.Pool
}

// NewSaleLeadRepository returns a SaleLeadRepository that uses the given pool.
func NewSaleLeadRepository(pool *pgxpool.Pool) *SaleLeadRepository {
	return &SaleLeadRepository{pool: pool}
}

// List returns one page of leads plus the filtered count.
func (r *SaleLeadRepository) List(ctx context.Context, q salelead.ListQuery) (*salelead.Page, error) {
	where := ""
	var args []any
	if q.IsActive != nil {
		args = append(args, *q.IsActive)
		where = " WHERE is_active = $1"
	}

	col, ok := leadSortFields[q.SortField]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if q.SortAsc {
		dir = "ASC"
	}

	offset := (q.Page - 1) * q.Limit
	if offset < 0 {
		offset = 0
	}
	listArgs := append(append([]any{}, args...), q.Limit, offset)
	listSQL := "SELECT id, email, is_active, created_at, updated_at FROM sale_leads" +
		where + " ORDER BY " + col + " " + dir +
		" LIMIT $" + strconv.Itoa(len(listArgs)-1) +
		" OFFSET $" + strconv.Itoa(len(listArgs))
	countSQL := "SELECT count(*) FROM sale_leads" + where

	var (
		items []salelead.SaleLead
		total int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(ctx, listSQL, listArgs...)
		if err != nil {
			return fmt.Errorf("listing sale leads: %w", err)
		}
		items, err = pgx.CollectRows(rows, scanSaleLead)
		return err
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
			return fmt.Errorf("counting sale leads: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &salelead.Page{
		Items:      items,
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: ceilDiv(total, q.Limit),
	}, nil
}

// GetByEmail returns the lead for an address, if any.
func (r *SaleLeadRepository) GetByEmail(ctx context.Context, email string) (*salelead.SaleLead, error) {
	rows, err := r.pool.Query(ctx, getLeadByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("getting sale lead %q: %w", email, err)
	}
	l, err := pgx.CollectExactlyOneRow(rows, scanSaleLead)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, salelead.ErrNotFound
		}
		return nil, fmt.Errorf("getting sale lead %q: %w", email, err)
	}
	return &l, nil
}

// Create inserts a new lead.
func (r *SaleLeadRepository) Create(ctx context.Context, l *salelead.SaleLead) error {
	err := r.pool.QueryRow(ctx, insertLeadSQL, l.ID, l.Email, l.IsActive).
		Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating sale lead %q: %w", l.Email, err)
	}
	return nil
}

func scanSaleLead(row pgx.CollectableRow) (salelead.SaleLead, error) {
	var l salelead.SaleLead
	err := row.Scan(&l.ID, &l.Email, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}
