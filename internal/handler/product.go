package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/clared/storefront/internal/catalog"
	"github.com/clared/storefront/internal/domain/product"
)

const maxUploadBytes = 10 << 20

// productView is the wire representation of a product. Image paths are
// prefixed with the configured image base URL.
type productView struct {
	ID            string   `json:"_id"`
	SKU           string   `json:"sku"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	Price         float64  `json:"price"`
	StockQuantity int      `json:"stockQuantity"`
	IsAvailable   bool     `json:"isAvailable"`
	ImageURL      string   `json:"imageUrl"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

func (h *Handler) toView(p product.Product) productView {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return productView{
		ID:            p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Tags:          tags,
		Price:         p.Price.InexactFloat64(),
		StockQuantity: p.StockQuantity,
		IsAvailable:   p.IsAvailable,
		ImageURL:      h.imageBaseURL + p.ImageURL,
		CreatedAt:     p.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		UpdatedAt:     p.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// ListProducts serves the paginated, filterable catalog listing.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q, err := catalog.ParseListParams(r.URL.Query())
	if err != nil {
		var catErr *catalog.InvalidCategoryError
		if errors.As(err, &catErr) {
			writeError(w, r, http.StatusBadRequest, catErr.Error())
			return
		}
		writeError(w, r, http.StatusBadRequest, "Error fetching products")
		return
	}

	page, err := h.catalog.List(r.Context(), q)
	if err != nil {
		zctx.From(r.Context()).Error("list products", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, "Error fetching products")
		return
	}

	views := make([]productView, len(page.Items))
	for i, p := range page.Items {
		views[i] = h.toView(p)
	}

	writeJSON(w, r, http.StatusOK, envelope{
		Success: true,
		Pagination: &pagination{
			Total:      page.Total,
			Page:       page.Page,
			Limit:      page.Limit,
			TotalPages: page.TotalPages,
		},
		Data: views,
	})
}

// GetProductByCode serves the public single-product lookup by SKU.
func (h *Handler) GetProductByCode(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetBySKU(r.Context(), r.PathValue("code"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "Product not found")
			return
		}
		zctx.From(r.Context()).Error("get product by code", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, "Error fetching product")
		return
	}
	writeData(w, r, http.StatusOK, h.toView(*p))
}

// GetProductByID serves the admin detail lookup by internal identifier.
func (h *Handler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Products().GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "Product not found")
			return
		}
		zctx.From(r.Context()).Error("get product", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, "Error fetching product")
		return
	}
	writeData(w, r, http.StatusOK, h.toView(*p))
}

// productForm is the typed result of parsing the admin multipart submission.
// Parsing fails closed: a non-numeric price or stock quantity rejects the
// whole request instead of being coerced to a zero value.
type productForm struct {
	Name          string
	Description   string
	SKU           string
	Category      string
	Tags          []string
	Price         decimal.Decimal
	StockQuantity int

	// Image upload, when present.
	ImageName        string
	ImageData        []byte
	ImageContentType string
}

func parseProductForm(r *http.Request) (*productForm, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, errors.New("invalid multipart form")
	}

	f := &productForm{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		SKU:         r.FormValue("sku"),
		Category:    r.FormValue("category"),
	}

	price, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("price")))
	if err != nil {
		return nil, errors.New("price must be a number")
	}
	f.Price = price

	qty, err := strconv.Atoi(strings.TrimSpace(r.FormValue("stockQuantity")))
	if err != nil {
		return nil, errors.New("stock quantity must be an integer")
	}
	f.StockQuantity = qty

	if tags := strings.TrimSpace(r.FormValue("tags")); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				f.Tags = append(f.Tags, tag)
			}
		}
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return nil, errors.New("error reading image file")
		}
		f.ImageName = header.Filename
		f.ImageData = data
		f.ImageContentType = header.Header.Get("Content-Type")
	} else if !errors.Is(err, http.ErrMissingFile) {
		return nil, errors.New("invalid image upload")
	}

	return f, nil
}

// CreateProduct handles the admin multipart product submission. The image is
// optional; without one the placeholder path is stored.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	form, err := parseProductForm(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	p := &product.Product{
		ID:            uuid.New().String(),
		SKU:           form.SKU,
		Name:          form.Name,
		Description:   form.Description,
		Category:      form.Category,
		Tags:          form.Tags,
		Price:         form.Price,
		StockQuantity: form.StockQuantity,
		IsAvailable:   true,
		ImageURL:      product.DefaultImageURL,
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if form.ImageData != nil {
		path, err := h.images.Upload(r.Context(), form.ImageName, form.ImageData, form.ImageContentType)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid format for image product")
			return
		}
		p.ImageURL = path
	}

	if err := h.catalog.Products().Create(r.Context(), p); err != nil {
		if errors.Is(err, product.ErrDuplicateSKU) {
			writeError(w, r, http.StatusBadRequest, "A product with this SKU already exists")
			return
		}
		zctx.From(r.Context()).Error("create product", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, "Error creating product")
		return
	}

	writeData(w, r, http.StatusCreated, h.toView(*p))
}

// UpdateProduct handles the admin edit: a full replace of descriptive and
// commercial fields, with an optional image replacement. When a new image is
// uploaded, the previously stored one is deleted unless it is the placeholder.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	existing, err := h.catalog.Products().GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "Product not found")
			return
		}
		zctx.From(r.Context()).Error("get product", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, "Error updating product")
		return
	}

	form, err := parseProductForm(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	p := &product.Product{
		ID:            existing.ID,
		SKU:           existing.SKU,
		Name:          form.Name,
		Description:   form.Description,
		Category:      form.Category,
		Tags:          form.Tags,
		Price:         form.Price,
		StockQuantity: form.StockQuantity,
		IsAvailable:   true,
		ImageURL:      existing.ImageURL,
		CreatedAt:     existing.CreatedAt,
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if form.ImageData != nil {
		path, err := h.images.Upload(r.Context(), form.ImageName, form.ImageData, form.ImageContentType)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid format for image product")
			return
		}
		if existing.ImageURL != product.DefaultImageURL {
			if err := h.images.Delete(r.Context(), existing.ImageURL); err != nil {
				zctx.From(r.Context()).Warn("delete previous image",
					zap.String("path", existing.ImageURL), zap.Error(err))
			}
		}
		p.ImageURL = path
	}

	if err := h.catalog.Products().Update(r.Context(), p); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "Product not found")
			return
		}
		zctx.From(r.Context()).Error("update product", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, "Error updating product")
		return
	}

	writeData(w, r, http.StatusOK, h.toView(*p))
}

// DeleteProduct hard-deletes a product.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Products().Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "Product not found")
			return
		}
		zctx.From(r.Context()).Error("delete product", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, "Error deleting product")
		return
	}
	writeData(w, r, http.StatusOK, struct{}{})
}
