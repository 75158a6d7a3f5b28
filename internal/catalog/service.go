package catalog

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/clared/storefront/internal/domain/product"
)

// Service executes listing plans and single-product lookups. Writes go
// through the repository exposed by Products.
type Service struct {
	products product.Repository
}

// NewService creates a catalog Service over the given product repository.
func NewService(products product.Repository) *Service {
	return &Service{products: products}
}

// List runs one listing query and returns a bounded page plus count metadata.
// Filters combine conjunctively; ordering is creation-time descending unless a
// search term is present, in which case the store's natural order is kept.
func (s *Service) List(ctx context.Context, q product.ListQuery) (*product.Page, error) {
	page, err := s.products.List(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return page, nil
}

// Products exposes the underlying repository for admin writes.
func (s *Service) Products() product.Repository {
	return s.products
}

// GetBySKU returns the product identified by its public code.
func (s *Service) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	p, err := s.products.GetBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrap(err, "get product by sku")
	}
	return p, nil
}
