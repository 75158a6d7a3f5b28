package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/clared/storefront/internal/domain/user"
)

// ListUsers serves the admin account listing.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	vals := r.URL.Query()
	q := user.ListQuery{
		Search:    vals.Get("search"),
		Role:      user.Role(vals.Get("role")),
		IsActive:  boolParam(vals, "isActive"),
		SortField: vals.Get("sortField"),
		SortAsc:   vals.Get("sortOrder") == "asc",
	}
	q.Page, q.Limit = pageParams(vals)

	page, err := h.users.List(r.Context(), q)
	if err != nil {
		zctx.From(r.Context()).Error("list users", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, "Error fetching users")
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
