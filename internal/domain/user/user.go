package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// Role identifies a user's permission level.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// IsAdmin reports whether the role grants access to the private backoffice.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User is a backoffice account. PasswordHash is only populated by lookups that
// explicitly request credentials and must never be serialized.
type User struct {
	ID           string     `json:"_id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	PhoneNumber  string     `json:"phoneNumber"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ListQuery filters the admin user listing. Search matches first name, last
// name or email case-insensitively; only admin roles are ever returned.
type ListQuery struct {
	Search    string
	Role      Role
	IsActive  *bool
	SortField string
	SortAsc   bool
	Page      int
	Limit     int
}

// Page is one page of the admin user listing.
type Page struct {
	Items      []User
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// Repository defines persistence operations for backoffice users.
type Repository interface {
	List(ctx context.Context, q ListQuery) (*Page, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByEmailWithPassword returns an active user including the password
	// hash, for credential verification only.
	GetByEmailWithPassword(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
