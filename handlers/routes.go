// Package handlers exposes the catalog and vendor account operations over
// HTTP.
package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"foodhub/auth"
	"foodhub/catalog"
	"foodhub/uploads"
)

// Deps carries what the handlers need.
type Deps struct {
	Catalog  *catalog.Service
	Accounts *auth.Accounts
	Uploads  uploads.Store
	// Files serves stored uploads; nil disables /uploads/.
	Files        http.Handler
	Log          *zap.Logger
	MaxBodyBytes int64
}

// Routes builds the API mux.
func Routes(d *Deps) *http.ServeMux {
	mux := http.NewServeMux()
	protect := d.Accounts.Protect

	mux.HandleFunc("GET /{$}", HealthHandler())
	mux.HandleFunc("GET /api/cors-test", CORSTestHandler())
	if d.Files != nil {
		mux.Handle("GET "+uploads.URLPrefix, d.Files)
	}

	mux.HandleFunc("GET /api/restaurants", ListRestaurantsHandler(d))
	mux.HandleFunc("GET /api/restaurants/vendor/me", protect(VendorRestaurantsHandler(d)))
	mux.HandleFunc("GET /api/restaurants/{id}", RestaurantHandler(d))
	mux.HandleFunc("POST /api/restaurants", d.limit(protect(CreateRestaurantHandler(d))))
	mux.HandleFunc("PUT /api/restaurants/{id}", d.limit(protect(UpdateRestaurantHandler(d))))
	mux.HandleFunc("DELETE /api/restaurants/{id}", protect(DeleteRestaurantHandler(d)))
	mux.HandleFunc("POST /api/restaurants/{id}/images", d.limit(protect(RestaurantImagesHandler(d))))

	mux.HandleFunc("GET /api/items", ListItemsHandler(d))
	mux.HandleFunc("GET /api/items/restaurant/{restaurantId}", RestaurantItemsHandler(d))
	mux.HandleFunc("GET /api/items/{id}", ItemHandler(d))
	mux.HandleFunc("POST /api/items", d.limit(protect(CreateItemHandler(d))))
	mux.HandleFunc("PUT /api/items/{id}", d.limit(protect(UpdateItemHandler(d))))
	mux.HandleFunc("DELETE /api/items/{id}", protect(DeleteItemHandler(d)))

	mux.HandleFunc("POST /api/vendors/register", d.limit(RegisterHandler(d)))
	mux.HandleFunc("POST /api/vendors/login", d.limit(LoginHandler(d)))
	mux.HandleFunc("GET /api/vendors/me", protect(MeHandler(d)))
	mux.HandleFunc("PUT /api/vendors/profile", d.limit(protect(ProfileHandler(d))))
	mux.HandleFunc("PUT /api/vendors/profile-image", d.limit(protect(ProfileImageHandler(d))))
	mux.HandleFunc("POST /api/vendors/logout", protect(LogoutHandler()))

	return mux
}

func (d *Deps) limit(next http.HandlerFunc) http.HandlerFunc {
	if d.MaxBodyBytes <= 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, d.MaxBodyBytes)
		next(w, r)
	}
}

// HealthHandler reports that the API is up.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusOK, "Food Delivery API is running")
	}
}

// CORSTestHandler echoes the request origin so browser clients can check
// their CORS setup.
func CORSTestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "No origin"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "CORS is working!",
			"origin":  origin,
		})
	}
}

func saveUpload(ctx context.Context, store uploads.Store, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return store.Save(ctx, fh.Filename, f)
}
