// Package catalog implements the product listing query builder: it turns raw
// request parameters into a single deterministic filter+sort+pagination plan
// and executes it once against the product repository.
package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/clared/storefront/internal/domain/product"
)

// Listing defaults, matching the reference API.
const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// InvalidCategoryError rejects a listing before query execution when the
// category parameter falls outside the closed slug set.
type InvalidCategoryError struct {
	Category string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("Invalid category. Allowed categories: %s.",
		strings.Join(product.Categories, ", "))
}

// ParseListParams coerces raw query-string values into a ListQuery.
//
// page and limit fall back to their defaults on missing or non-numeric input;
// a page below 1 is clamped by ListQuery.Offset rather than rejected. The
// available and featured parameters accept boolean-ish strings ("true", "1").
// A category outside the allowed set fails the whole operation with
// *InvalidCategoryError before any query runs.
func ParseListParams(values url.Values) (product.ListQuery, error) {
	q := product.ListQuery{
		Page:          intOrDefault(values.Get("page"), DefaultPage),
		Limit:         intOrDefault(values.Get("limit"), DefaultLimit),
		Search:        strings.TrimSpace(values.Get("search")),
		Category:      strings.TrimSpace(values.Get("category")),
		AvailableOnly: truthy(values.Get("available")),
		Featured:      truthy(values.Get("featured")),
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	if q.Category != "" && !product.ValidCategory(q.Category) {
		return product.ListQuery{}, &InvalidCategoryError{Category: q.Category}
	}
	return q, nil
}

func intOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	}
	return false
}
