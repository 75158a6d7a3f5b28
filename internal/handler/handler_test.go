package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clared/storefront/internal/auth"
	"github.com/clared/storefront/internal/catalog"
	"github.com/clared/storefront/internal/domain/product"
	"github.com/clared/storefront/internal/domain/salelead"
	"github.com/clared/storefront/internal/domain/user"
)

// --- Mock implementations ---

// mockProductRepo is an in-memory product store mirroring the Postgres
// listing semantics: conjunctive filters, newest-first unless searching, and
// a total that counts the whole collection regardless of filters.
type mockProductRepo struct {
	products []product.Product
	listErr  error
}

func (m *mockProductRepo) List(_ context.Context, q product.ListQuery) (*product.Page, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}

	matched := make([]product.Product, 0, len(m.products))
	for _, p := range m.products {
		if q.AvailableOnly && !p.IsAvailable {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.Search != "" {
			s := strings.ToLower(q.Search)
			if !strings.Contains(strings.ToLower(p.Name), s) &&
				!strings.Contains(strings.ToLower(p.SKU), s) {
				continue
			}
		}
		matched = append(matched, p)
	}
	if q.Search == "" {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		})
	}

	start := q.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}

	total := len(m.products)
	return &product.Page{
		Items:      matched[start:end],
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: (total + q.Limit - 1) / q.Limit,
	}, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			p := m.products[i]
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) GetBySKU(_ context.Context, sku string) (*product.Product, error) {
	for i := range m.products {
		if m.products[i].SKU == sku {
			p := m.products[i]
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) Create(_ context.Context, p *product.Product) error {
	for i := range m.products {
		if m.products[i].SKU == p.SKU {
			return product.ErrDuplicateSKU
		}
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.products = append(m.products, *p)
	return nil
}

func (m *mockProductRepo) Update(_ context.Context, p *product.Product) error {
	for i := range m.products {
		if m.products[i].ID == p.ID {
			p.UpdatedAt = time.Now()
			m.products[i] = *p
			return nil
		}
	}
	return product.ErrNotFound
}

func (m *mockProductRepo) Delete(_ context.Context, id string) error {
	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return product.ErrNotFound
}

type mockUserRepo struct {
	users []user.User
}

func (m *mockUserRepo) List(_ context.Context, q user.ListQuery) (*user.Page, error) {
	return &user.Page{
		Items: m.users, Page: q.Page, Limit: q.Limit,
		Total: len(m.users), TotalPages: 1,
	}, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			u.PasswordHash = ""
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *mockUserRepo) GetByEmailWithPassword(_ context.Context, email string) (*user.User, error) {
	for i := range m.users {
		if m.users[i].Email == email && m.users[i].IsActive {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *mockUserRepo) Create(_ context.Context, u *user.User) error {
	m.users = append(m.users, *u)
	return nil
}

func (m *mockUserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].LastLogin = &at
		}
	}
	return nil
}

type mockLeadRepo struct {
	leads []salelead.SaleLead
}

func (m *mockLeadRepo) List(_ context.Context, q salelead.ListQuery) (*salelead.Page, error) {
	return &salelead.Page{
		Items: m.leads, Page: q.Page, Limit: q.Limit,
		Total: len(m.leads), TotalPages: 1,
	}, nil
}

func (m *mockLeadRepo) GetByEmail(_ context.Context, email string) (*salelead.SaleLead, error) {
	for i := range m.leads {
		if m.leads[i].Email == email {
			l := m.leads[i]
			return &l, nil
		}
	}
	return nil, salelead.ErrNotFound
}

func (m *mockLeadRepo) Create(_ context.Context, l *salelead.SaleLead) error {
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt
	m.leads = append(m.leads, *l)
	return nil
}

type mockImageStore struct {
	uploaded []string
	deleted  []string
	err      error
}

func (m *mockImageStore) Upload(_ context.Context, fileName string, _ []byte, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	path := "/images/products/" + fileName
	m.uploaded = append(m.uploaded, path)
	return path, nil
}

func (m *mockImageStore) Delete(_ context.Context, imagePath string) error {
	m.deleted = append(m.deleted, imagePath)
	return nil
}

// --- Helpers ---

func newTestProduct(id, sku, name string, createdAt time.Time) product.Product {
	return product.Product{
		ID:            id,
		SKU:           sku,
		Name:          name,
		Description:   "test product",
		Category:      "tech",
		Price:         decimal.NewFromInt(10),
		StockQuantity: 5,
		IsAvailable:   true,
		ImageURL:      product.DefaultImageURL,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

type testEnv struct {
	handler  *Handler
	mux      *http.ServeMux
	products *mockProductRepo
	users    *mockUserRepo
	leads    *mockLeadRepo
	images   *mockImageStore
	tokens   *auth.Tokens
}

func newTestEnv(products ...product.Product) *testEnv {
	env := &testEnv{
		products: &mockProductRepo{products: products},
		users:    &mockUserRepo{},
		leads:    &mockLeadRepo{},
		images:   &mockImageStore{},
		tokens:   auth.NewTokens([]byte("test-secret")),
	}
	env.handler = New(Config{}, catalog.NewService(env.products), env.users, env.leads, env.images, env.tokens)
	env.mux = http.NewServeMux()
	env.handler.Routes(env.mux)
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)

	var body envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec, body
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	token, err := e.tokens.Issue(&user.User{ID: "admin-1", Role: user.RoleAdmin})
	require.NoError(t, err)
	return token
}

func seedAdmin(t *testing.T, env *testEnv, email, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	env.users.users = append(env.users.users, user.User{
		ID:           "admin-1",
		Email:        email,
		PasswordHash: string(hash),
		Role:         user.RoleAdmin,
		IsActive:     true,
	})
}

func decodeProducts(t *testing.T, body envelope) []productView {
	t.Helper()
	raw, err := json.Marshal(body.Data)
	require.NoError(t, err)
	var views []productView
	require.NoError(t, json.Unmarshal(raw, &views))
	return views
}

// --- Listing tests ---

func TestListProducts_PagedNewestFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(
		newTestProduct("1", "SKU-A", "Alpha", base),
		newTestProduct("2", "SKU-B", "Bravo", base.Add(1*time.Minute)),
		newTestProduct("3", "SKU-C", "Charlie", base.Add(2*time.Minute)),
		newTestProduct("4", "SKU-D", "Delta", base.Add(3*time.Minute)),
		newTestProduct("5", "SKU-E", "Echo", base.Add(4*time.Minute)),
	)

	var got []string
	for page := 1; page <= 3; page++ {
		req := httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/api/products?page=%d&limit=2", page), nil)
		rec, body := env.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, body.Success)
		require.NotNil(t, body.Pagination)
		assert.Equal(t, 5, body.Pagination.Total)
		assert.Equal(t, page, body.Pagination.Page)
		assert.Equal(t, 2, body.Pagination.Limit)
		assert.Equal(t, 3, body.Pagination.TotalPages)

		for _, v := range decodeProducts(t, body) {
			got = append(got, v.Name)
		}
	}

	assert.Equal(t, []string{"Echo", "Delta", "Charlie", "Bravo", "Alpha"}, got)
}

func TestListProducts_Defaults(t *testing.T) {
	env := newTestEnv(newTestProduct("1", "SKU-A", "Alpha", time.Now()))

	rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, body.Pagination.Page)
	assert.Equal(t, 20, body.Pagination.Limit)
}

func TestListProducts_InvalidCategory(t *testing.T) {
	env := newTestEnv()

	rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/products?category=toys", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t,
		"Invalid category. Allowed categories: tech, accessories, pets, clothing, service.",
		body.Error)
}

func TestListProducts_CategoryFilter(t *testing.T) {
	base := time.Now()
	p := newTestProduct("1", "SKU-A", "Leash", base)
	p.Category = "pets"
	env := newTestEnv(p, newTestProduct("2", "SKU-B", "Laptop", base.Add(time.Minute)))

	rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/products?category=pets", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	views := decodeProducts(t, body)
	require.Len(t, views, 1)
	assert.Equal(t, "Leash", views[0].Name)
	// Total reflects the whole collection, not the filtered subset.
	assert.Equal(t, 2, body.Pagination.Total)
}

func TestListProducts_RepoError(t *testing.T) {
	env := newTestEnv()
	env.products.listErr = errors.New("db down")

	rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Error fetching products", body.Error)
}

func TestGetProductByCode(t *testing.T) {
	env := newTestEnv(newTestProduct("1", "SKU-A", "Alpha", time.Now()))

	t.Run("found", func(t *testing.T) {
		rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/product/SKU-A", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, body.Success)
	})

	t.Run("not found", func(t *testing.T) {
		rec, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/product/SKU-X", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Product not found", body.Error)
	})
}

// --- Admin product tests ---

func multipartProduct(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func validProductFields() map[string]string {
	return map[string]string{
		"name":          "New Widget",
		"description":   "A widget",
		"sku":           "SKU-NEW",
		"category":      "tech",
		"price":         "19.99",
		"stockQuantity": "3",
		"tags":          "new, widget",
	}
}

func TestCreateProduct(t *testing.T) {
	env := newTestEnv()
	token := env.adminToken(t)

	buf, contentType := multipartProduct(t, validProductFields())
	req := httptest.NewRequest(http.MethodPost, "/api/products", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	rec, body := env.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, body.Success)

	created, err := env.products.GetBySKU(context.Background(), "SKU-NEW")
	require.NoError(t, err)
	assert.Equal(t, "New Widget", created.Name)
	assert.Equal(t, product.DefaultImageURL, created.ImageURL)
	assert.True(t, created.IsAvailable)
}

func TestCreateProduct_NonNumericPrice(t *testing.T) {
	env := newTestEnv()
	fields := validProductFields()
	fields["price"] = "cheap"

	buf, contentType := multipartProduct(t, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/products", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+env.adminToken(t))

	rec, body := env.do(t, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "price must be a number", body.Error)
	assert.Empty(t, env.products.products)
}

func TestCreateProduct_DuplicateSKU(t *testing.T) {
	env := newTestEnv(newTestProduct("1", "SKU-NEW", "Existing", time.Now()))

	buf, contentType := multipartProduct(t, validProductFields())
	req := httptest.NewRequest(http.MethodPost, "/api/products", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+env.adminToken(t))

	rec, body := env.do(t, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "A product with this SKU already exists", body.Error)
}

func TestCreateProduct_RequiresAuth(t *testing.T) {
	env := newTestEnv()

	buf, contentType := multipartProduct(t, validProductFields())
	req := httptest.NewRequest(http.MethodPost, "/api/products", buf)
	req.Header.Set("Content-Type", contentType)

	rec, body := env.do(t, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", body.Error)
}

func TestUpdateProduct_ReplacesImageAndDeletesOld(t *testing.T) {
	existing := newTestProduct("1", "SKU-A", "Alpha", time.Now())
	existing.ImageURL = "/images/products/old-1.jpg"
	env := newTestEnv(existing)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range validProductFields() {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", "fresh.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/products/1", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.adminToken(t))

	rec, _ := env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"/images/products/old-1.jpg"}, env.images.deleted)

	updated, err := env.products.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "/images/products/fresh.png", updated.ImageURL)
	// SKU is immutable on update.
	assert.Equal(t, "SKU-A", updated.SKU)
}

func TestDeleteProduct(t *testing.T) {
	env := newTestEnv(newTestProduct("1", "SKU-A", "Alpha", time.Now()))

	req := httptest.NewRequest(http.MethodDelete, "/api/products/1", nil)
	req.Header.Set("Authorization", "Bearer "+env.adminToken(t))

	rec, _ := env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.products.products)
}

// --- Auth tests ---

func TestSignIn(t *testing.T) {
	env := newTestEnv()
	seedAdmin(t, env, "admin@clared.test", "hunter22")

	t.Run("success", func(t *testing.T) {
		body := `{"email": "admin@clared.test", "password": "hunter22"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", strings.NewReader(body))

		rec, resp := env.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, resp.Success)

		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		token, _ := data["token"].(string)
		require.NotEmpty(t, token)

		claims, err := env.tokens.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "admin-1", claims.UserID)
		assert.NotNil(t, env.users.users[0].LastLogin)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := `{"email": "admin@clared.test", "password": "nope"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", strings.NewReader(body))

		rec, resp := env.do(t, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", resp.Error)
	})

	t.Run("unknown email", func(t *testing.T) {
		body := `{"email": "ghost@clared.test", "password": "hunter22"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", strings.NewReader(body))

		rec, resp := env.do(t, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", resp.Error)
	})

	t.Run("missing fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", strings.NewReader(`{}`))

		rec, _ := env.do(t, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMe(t *testing.T) {
	env := newTestEnv()
	seedAdmin(t, env, "admin@clared.test", "hunter22")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+env.adminToken(t))

	rec, body := env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	data, ok := body.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "admin@clared.test", data["email"])
}

func TestRequireAdmin_InvalidToken(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer garbage")

	rec, body := env.do(t, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", body.Error)
}

// --- Sale lead tests ---

func TestCreateSaleLead(t *testing.T) {
	env := newTestEnv()
	token := env.adminToken(t)

	post := func(payload string) (*httptest.ResponseRecorder, envelope) {
		req := httptest.NewRequest(http.MethodPost, "/api/sale-leads", strings.NewReader(payload))
		req.Header.Set("Authorization", "Bearer "+token)
		return env.do(t, req)
	}

	rec, _ := post(`{"email": "Lead@Example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, env.leads.leads, 1)
	assert.Equal(t, "lead@example.com", env.leads.leads[0].Email)

	// Resubmitting the same address succeeds without creating a duplicate.
	rec, body := post(`{"email": "lead@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Len(t, env.leads.leads, 1)

	rec, body = post(`{"email": "not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "please provide a valid email", body.Error)
}

func TestListUsers(t *testing.T) {
	env := newTestEnv()
	seedAdmin(t, env, "admin@clared.test", "hunter22")

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+env.adminToken(t))

	rec, body := env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, body.Pagination)
	assert.Equal(t, 1, body.Pagination.Total)
}
