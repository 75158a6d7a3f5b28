package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/clared/storefront/internal/domain/user"
)

const userColumns = `id, first_name, last_name, email, phone_number, role,
		is_active, last_login, created_at, updated_at`

const (
	getUserByIDSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	getUserByEmailSQL = `SELECT ` + userColumns + `, password_hash
		FROM users WHERE email = $1 AND is_active = TRUE`

	insertUserSQL = `INSERT INTO users
		(id, first_name, last_name, email, password_hash, phone_number, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	touchLastLoginSQL = `UPDATE users SET last_login = $2, updated_at = now() WHERE id = $1`
)

// userSortFields whitelists sortable columns; anything else falls back to
// creation time, mirroring the reference default.
var userSortFields = map[string]string{
	"createdAt": "created_at",
	"email":     "email",
	"firstName": "first_name",
	"lastName":  "last_name",
	"lastLogin": "last_login",
}

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// buildUserListSQL renders the admin listing and its count query. Only admin
// roles are ever returned; search matches first name, last name or email.
func buildUserListSQL(q user.ListQuery) (listSQL string, listArgs []any, countSQL string, countArgs []any) {
	conds := []string{"role IN ('admin', 'super_admin')"}

	var args []any
	if q.IsActive != nil {
		args = append(args, *q.IsActive)
		conds = append(conds, "is_active = $"+strconv.Itoa(len(args)))
	}
	if q.Role != "" {
		args = append(args, string(q.Role))
		conds = append(conds, "role = $"+strconv.Itoa(len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		n := strconv.Itoa(len(args))
		conds = append(conds,
			"(first_name ILIKE $"+n+" OR last_name ILIKE $"+n+" OR email ILIKE $"+n+")")
	}

	where := " WHERE " + strings.Join(conds, " AND ")
	countSQL = "SELECT count(*) FROM users" + where
	countArgs = args

	col, ok := userSortFields[q.SortField]
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
	listArgs = append(append([]any{}, args...), q.Limit, offset)
	listSQL = "SELECT " + userColumns + " FROM users" + where +
		" ORDER BY " + col + " " + dir +
		" LIMIT $" + strconv.Itoa(len(listArgs)-1) +
		" OFFSET $" + strconv.Itoa(len(listArgs))

	return listSQL, listArgs, countSQL, countArgs
}

// List returns one page of backoffice users plus the filtered count.
func (r *UserRepository) List(ctx context.Context, q user.ListQuery) (*user.Page, error) {
	listSQL, listArgs, countSQL, countArgs := buildUserListSQL(q)

	var (
		items []user.User
		total int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(ctx, listSQL, listArgs...)
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}
		items, err = pgx.CollectRows(rows, scanUser)
		return err
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return fmt.Errorf("counting users: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &user.Page{
		Items:      items,
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: ceilDiv(total, q.Limit),
	}, nil
}

// GetByID returns a single user by identifier, without credentials.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, getUserByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}
	return &u, nil
}

// GetByEmailWithPassword returns an active user including the password hash.
// Used only for credential verification during sign-in.
func (r *UserRepository) GetByEmailWithPassword(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := r.pool.QueryRow(ctx, getUserByEmailSQL, email).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhoneNumber, &u.Role,
		&u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt, &u.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return &u, nil
}

// Create inserts a new backoffice user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.pool.QueryRow(ctx, insertUserSQL,
		u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash,
		u.PhoneNumber, string(u.Role), u.IsActive,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}

// TouchLastLogin records a successful sign-in.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := r.pool.Exec(ctx, touchLastLoginSQL, id, at); err != nil {
		return fmt.Errorf("updating last login for %q: %w", id, err)
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhoneNumber, &u.Role,
		&u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}
