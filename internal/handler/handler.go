// Package handler exposes the storefront HTTP API: public catalog reads and
// the token-gated admin backoffice.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/clared/storefront/internal/auth"
	"github.com/clared/storefront/internal/catalog"
	"github.com/clared/storefront/internal/domain/salelead"
	"github.com/clared/storefront/internal/domain/user"
)

// ImageStore abstracts product image storage (S3 in production).
type ImageStore interface {
	Upload(ctx context.Context, fileName string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, imagePath string) error
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler implements the storefront API over the injected domain dependencies.
type Handler struct {
	catalog      *catalog.Service
	users        user.Repository
	leads        salelead.Repository
	images       ImageStore
	tokens       *auth.Tokens
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	catalogSvc *catalog.Service,
	users user.Repository,
	leads salelead.Repository,
	images ImageStore,
	tokens *auth.Tokens,
) *Handler {
	return &Handler{
		catalog:      catalogSvc,
		users:        users,
		leads:        leads,
		images:       images,
		tokens:       tokens,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes registers all API routes on the given mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	// Public catalog.
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/product/{code}", h.GetProductByCode)

	// Auth.
	mux.HandleFunc("POST /api/auth/sign-in", h.SignIn)
	mux.HandleFunc("POST /api/auth/sign-out", h.SignOut)
	mux.Handle("GET /api/auth/me", h.RequireAdmin(http.HandlerFunc(h.Me)))

	// Admin backoffice.
	mux.Handle("POST /api/products", h.RequireAdmin(http.HandlerFunc(h.CreateProduct)))
	mux.Handle("GET /api/products/{id}", h.RequireAdmin(http.HandlerFunc(h.GetProductByID)))
	mux.Handle("PUT /api/products/{id}", h.RequireAdmin(http.HandlerFunc(h.UpdateProduct)))
	mux.Handle("DELETE /api/products/{id}", h.RequireAdmin(http.HandlerFunc(h.DeleteProduct)))

	mux.Handle("GET /api/sale-leads", h.RequireAdmin(http.HandlerFunc(h.ListSaleLeads)))
	mux.Handle("POST /api/sale-leads", h.RequireAdmin(http.HandlerFunc(h.CreateSaleLead)))

	mux.Handle("GET /api/users", h.RequireAdmin(http.HandlerFunc(h.ListUsers)))
}

// pagination is the page metadata block of listing responses.
type pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// envelope is the uniform response shape of the API.
type envelope struct {
	Success    bool        `json:"success"`
	Pagination *pagination `json:"pagination,omitempty"`
	Data       any         `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, r, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, envelope{Success: false, Error: msg})
}
