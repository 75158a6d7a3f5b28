package catalog

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clared/storefront/internal/domain/product"
)

func TestParseListParams_Defaults(t *testing.T) {
	q, err := ParseListParams(url.Values{})
	require.NoError(t, err)

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.Limit)
	assert.Empty(t, q.Search)
	assert.Empty(t, q.Category)
	assert.False(t, q.AvailableOnly)
	assert.False(t, q.Featured)
}

func TestParseListParams_Coercion(t *testing.T) {
	q, err := ParseListParams(url.Values{
		"page":      {"3"},
		"limit":     {"5"},
		"search":    {" hub "},
		"available": {"true"},
		"featured":  {"1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 5, q.Limit)
	assert.Equal(t, "hub", q.Search)
	assert.True(t, q.AvailableOnly)
	assert.True(t, q.Featured)
}

func TestParseListParams_NonNumericFallsBack(t *testing.T) {
	q, err := ParseListParams(url.Values{
		"page":  {"abc"},
		"limit": {"-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultPage, q.Page)
	assert.Equal(t, DefaultLimit, q.Limit)
}

func TestParseListParams_NegativePageClampsOffset(t *testing.T) {
	q, err := ParseListParams(url.Values{"page": {"-2"}})
	require.NoError(t, err)

	assert.Equal(t, -2, q.Page)
	assert.Equal(t, 0, q.Offset(), "negative skip must be clamped to zero")
}

func TestParseListParams_ValidCategory(t *testing.T) {
	for _, slug := range product.Categories {
		q, err := ParseListParams(url.Values{"category": {slug}})
		require.NoError(t, err)
		assert.Equal(t, slug, q.Category)
	}
}

func TestParseListParams_InvalidCategory(t *testing.T) {
	_, err := ParseListParams(url.Values{"category": {"bogus"}})

	var catErr *InvalidCategoryError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, "bogus", catErr.Category)
	assert.Equal(t,
		"Invalid category. Allowed categories: tech, accessories, pets, clothing, service.",
		err.Error())
}
