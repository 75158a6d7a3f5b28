package salelead

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// ErrInvalidEmail is returned when a submitted lead email fails validation.
var ErrInvalidEmail = errors.New("please provide a valid email")

// ErrNotFound is returned when no lead exists for the given email.
var ErrNotFound = errors.New("sale lead not found")

// SaleLead is a newsletter/contact capture record keyed by email.
type SaleLead struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NormalizeEmail lowercases and trims an address and validates its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// ListQuery filters the lead listing.
type ListQuery struct {
	IsActive  *bool
	SortField string
	SortAsc   bool
	Page      int
	Limit     int
}

// Page is one page of the lead listing.
type Page struct {
	Items      []SaleLead
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// Repository defines persistence operations for sale leads.
type Repository interface {
	List(ctx context.Context, q ListQuery) (*Page, error)
	GetByEmail(ctx context.Context, email string) (*SaleLead, error)
	Create(ctx context.Context, l *SaleLead) error
}
