package product

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrDuplicateSKU is returned when a create collides with an existing SKU.
var ErrDuplicateSKU = errors.New("sku already exists")

// DefaultImageURL is the placeholder assigned to products created without an
// image. It is never deleted from object storage on image replacement.
const DefaultImageURL = "/images/products/image-product-default.jpg"

// Field length limits enforced on create and update.
const (
	MaxNameLen        = 100
	MaxDescriptionLen = 1000
)

// Categories is the closed set of allowed category slugs. A listing or write
// referencing any other category is rejected before touching the store.
var Categories = []string{"tech", "accessories", "pets", "clothing", "service"}

// ValidCategory reports whether slug belongs to the allowed category set.
func ValidCategory(slug string) bool {
	for _, c := range Categories {
		if c == slug {
			return true
		}
	}
	return false
}

// Product is a catalog entity. ID and SKU are assigned at creation and
// immutable; SKU is the public lookup key used in customer-facing URLs.
type Product struct {
	ID            string          `json:"_id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Tags          []string        `json:"tags"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	IsAvailable   bool            `json:"isAvailable"`
	ImageURL      string          `json:"imageUrl"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Normalize trims free-text fields and re-derives availability. Whenever the
// stock quantity is zero or negative the product must be unavailable; this is
// applied on every write so the pair is never persisted inconsistent.
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.TrimSpace(p.SKU)
	p.Category = strings.TrimSpace(p.Category)
	if p.StockQuantity <= 0 {
		p.IsAvailable = false
	}
}

// Validate checks entity-level constraints shared by create and update.
func (p *Product) Validate() error {
	switch {
	case p.Name == "":
		return errors.New("name is required")
	case len(p.Name) > MaxNameLen:
		return errors.Errorf("name cannot be more than %d characters", MaxNameLen)
	case len(p.Description) > MaxDescriptionLen:
		return errors.Errorf("description cannot be more than %d characters", MaxDescriptionLen)
	case p.SKU == "":
		return errors.New("sku is required")
	case !ValidCategory(p.Category):
		return errors.Errorf("unknown category %q", p.Category)
	case p.Price.IsNegative():
		return errors.New("price cannot be negative")
	case p.StockQuantity < 0:
		return errors.New("stock quantity cannot be negative")
	}
	return nil
}

// ListQuery is the deterministic filter+sort+pagination plan built by the
// catalog query builder. Filters combine conjunctively. When Search is set no
// explicit sort applies (store natural order); otherwise newest first.
type ListQuery struct {
	Search        string
	Category      string
	AvailableOnly bool
	// Featured is carried on the plan but never enters the filter predicate.
	// The reference API accepts the parameter without acting on it.
	Featured bool
	Page     int
	Limit    int
}

// Offset returns the number of rows to skip, clamped at zero so an
// out-of-range page can never produce a negative skip.
func (q ListQuery) Offset() int {
	off := (q.Page - 1) * q.Limit
	if off < 0 {
		return 0
	}
	return off
}

// Page is the ephemeral result of one list execution. Total reflects the whole
// collection regardless of active filters, matching the reference behavior;
// TotalPages is derived from it and therefore unreliable when filters narrow
// the result set.
type Page struct {
	Items      []Product
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context, q ListQuery) (*Page, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
