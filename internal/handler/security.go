package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/clared/storefront/internal/auth"
)

type claimsKey struct{}

// ClaimsFrom returns the verified session claims stored by RequireAdmin.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}

// RequireAdmin verifies the Bearer token and rejects non-admin sessions.
// Verified claims are stored in the request context.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims, err := h.tokens.Verify(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if !claims.Role.IsAdmin() {
			writeError(w, r, http.StatusForbidden, "Admin access required")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
