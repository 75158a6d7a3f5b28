package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clared/storefront/pkg/feed"
)

func listingServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/products", r.URL.Path)
		body, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			body = `{"success": true, "pagination": {"total": 0, "page": 1, "limit": 20, "totalPages": 0}, "data": []}`
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
}

func TestListProducts(t *testing.T) {
	srv := listingServer(t, map[string]string{
		"": `{
			"success": true,
			"pagination": {"total": 2, "page": 1, "limit": 20, "totalPages": 1},
			"data": [
				{"_id": "1", "sku": "SKU-A", "name": "Alpha", "category": "tech",
				 "tags": ["new"], "price": 19.99, "stockQuantity": 3,
				 "isAvailable": true, "imageUrl": "/images/products/a.jpg"},
				{"_id": "2", "sku": "SKU-B", "name": "Bravo", "category": "pets",
				 "price": 5, "stockQuantity": 0, "isAvailable": false,
				 "imageUrl": "/images/products/image-product-default.jpg"}
			]
		}`,
	})
	defer srv.Close()

	c := New(srv.URL)
	page, err := c.ListProducts(context.Background(), ListParams{})
	require.NoError(t, err)

	assert.Equal(t, 2, page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Alpha", page.Items[0].Name)
	assert.Equal(t, []string{"new"}, page.Items[0].Tags)
	assert.Equal(t, "19.99", page.Items[0].Price.String())
	assert.False(t, page.Items[1].IsAvailable)
}

func TestListProducts_SendsFilters(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"success": true, "data": []}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ListProducts(context.Background(), ListParams{
		Search:    "cable",
		Category:  "tech",
		Available: true,
		Page:      2,
		Limit:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, "available=true&category=tech&limit=10&page=2&search=cable", gotQuery)
}

func TestListProducts_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"success": false, "error": "Invalid category. Allowed categories: tech, accessories, pets, clothing, service."}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ListProducts(context.Background(), ListParams{Category: "toys"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "Invalid category")
}

func TestFeed_AccumulatesPages(t *testing.T) {
	srv := listingServer(t, map[string]string{
		"1": `{"success": true,
			"pagination": {"total": 3, "page": 1, "limit": 2, "totalPages": 2},
			"data": [
				{"_id": "5", "sku": "SKU-E", "name": "Echo", "price": 1, "isAvailable": true},
				{"_id": "4", "sku": "SKU-D", "name": "Delta", "price": 1, "isAvailable": true}
			]}`,
		"2": `{"success": true,
			"pagination": {"total": 3, "page": 2, "limit": 2, "totalPages": 2},
			"data": [
				{"_id": "3", "sku": "SKU-C", "name": "Charlie", "price": 1, "isAvailable": true}
			]}`,
	})
	defer srv.Close()

	ctrl := New(srv.URL).Feed(ListParams{Limit: 2})
	ctx := context.Background()

	require.NoError(t, ctrl.Load(ctx))
	require.Equal(t, feed.StateReady, ctrl.State())

	// Scrolling to the last visible item pulls the next page.
	ctrl.ItemVisible(ctx, len(ctrl.Items())-1)
	ctrl.ItemVisible(ctx, len(ctrl.Items())-1)

	var names []string
	for _, p := range ctrl.Items() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Echo", "Delta", "Charlie"}, names)
	assert.True(t, ctrl.Exhausted())
}
