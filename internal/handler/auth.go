package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/clared/storefront/internal/domain/user"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	User  *user.User `json:"user"`
	Token string     `json:"token"`
}

// SignIn verifies admin credentials and returns a session token. Invalid
// email, unknown account and wrong password all produce the same response.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Email and password are required")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, err := h.users.GetByEmailWithPassword(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			zctx.From(r.Context()).Error("sign in lookup", zap.Error(err))
		}
		writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !u.Role.IsAdmin() {
		writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := h.users.TouchLastLogin(r.Context(), u.ID, time.Now()); err != nil {
		zctx.From(r.Context()).Warn("touch last login", zap.String("user_id", u.ID), zap.Error(err))
	}

	token, err := h.tokens.Issue(u)
	if err != nil {
		zctx.From(r.Context()).Error("issue token", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "Error signing in")
		return
	}

	u.PasswordHash = ""
	writeData(w, r, http.StatusOK, signInResponse{User: u, Token: token})
}

// SignOut acknowledges the sign-out. Tokens are stateless; the client discards
// its copy.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, envelope{Success: true, Message: "Signed out"})
}

// Me returns the account behind the current session token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	u, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, r, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		zctx.From(r.Context()).Error("get current user", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "Error fetching user")
		return
	}

	writeData(w, r, http.StatusOK, u)
}
