package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"foodhub/models"
)

type contextKey struct{}

// NotAuthorizedMessage is the body message for every rejected request.
const NotAuthorizedMessage = "Not authorized to access this route"

// WithVendor returns a copy of ctx carrying v.
func WithVendor(ctx context.Context, v *models.Vendor) context.Context {
	return context.WithValue(ctx, contextKey{}, v)
}

// VendorFrom returns the vendor stored by Protect.
func VendorFrom(ctx context.Context) (*models.Vendor, bool) {
	v, ok := ctx.Value(contextKey{}).(*models.Vendor)
	return v, ok && v != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Protect rejects requests without a valid bearer token and otherwise runs
// next with the authenticated vendor in the request context.
func (a *Accounts) Protect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			unauthorized(w)
			return
		}
		v, err := a.Authenticate(r.Context(), token)
		if err != nil {
			unauthorized(w)
			return
		}
		next(w, r.WithContext(WithVendor(r.Context(), v)))
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": NotAuthorizedMessage,
	})
}
