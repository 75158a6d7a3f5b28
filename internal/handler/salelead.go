package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clared/storefront/internal/catalog"
	"github.com/clared/storefront/internal/domain/salelead"
)

func pageParams(vals url.Values) (page, limit int) {
	page = catalog.DefaultPage
	if v, err := strconv.Atoi(vals.Get("page")); err == nil {
		page = v
	}
	limit = catalog.DefaultLimit
	if v, err := strconv.Atoi(vals.Get("limit")); err == nil && v > 0 {
		limit = v
	}
	return page, limit
}

func boolParam(vals url.Values, key string) *bool {
	if !vals.Has(key) {
		return nil
	}
	v := vals.Get(key) == "true"
	return &v
}

// ListSaleLeads serves the admin lead listing.
func (h *Handler) ListSaleLeads(w http.ResponseWriter, r *http.Request) {
	vals := r.URL.Query()
	q := salelead.ListQuery{
		IsActive:  boolParam(vals, "isActive"),
		SortField: vals.Get("sortField"),
		SortAsc:   vals.Get("sortOrder") == "asc",
	}
	q.Page, q.Limit = pageParams(vals)

	page, err := h.leads.List(r.Context(), q)
	if err != nil {
		zctx.From(r.Context()).Error("list sale leads", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, "Error fetching sale leads")
		return
	}

	writeJSON(w, r, http.StatusOK, envelope{
		Success: true,
		Pagination: &pagination{
			Total:      page.Total,
			Page:       page.Page,
			Limit:      page.Limit,
			TotalPages: page.TotalPages,
		},
		Data: page.Items,
	})
}

type createLeadRequest struct {
	Email string `json:"email"`
}

// CreateSaleLead records a lead email. Submitting an email that is already
// registered succeeds and returns the existing record.
func (h *Handler) CreateSaleLead(w http.ResponseWriter, r *http.Request) {
	var req createLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, salelead.ErrInvalidEmail.Error())
		return
	}

	email, err := salelead.NormalizeEmail(req.Email)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if existing, err := h.leads.GetByEmail(r.Context(), email); err == nil {
		writeData(w, r, http.StatusOK, existing)
		return
	} else if !errors.Is(err, salelead.ErrNotFound) {
		zctx.From(r.Context()).Error("lookup sale lead", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, "Error creating sale lead")
		return
	}

	lead := &salelead.SaleLead{
		ID:       uuid.New().String(),
		Email:    email,
		IsActive: true,
	}
	if err := h.leads.Create(r.Context(), lead); err != nil {
		zctx.From(r.Context()).Error("create sale lead", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, "Error creating sale lead")
		return
	}

	writeData(w, r, http.StatusCreated, lead)
}
