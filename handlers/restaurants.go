package handlers

import (
	"fmt"
	"net/http"

	"foodhub/auth"
	"foodhub/catalog"
	"foodhub/models"
)

const maxGalleryUploads = 5

// ListRestaurantsHandler returns every restaurant.
func ListRestaurantsHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurants, err := d.Catalog.ListRestaurants(r.Context())
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, restaurants)
	}
}

// RestaurantHandler returns one restaurant with its items. The id may be a
// storage id, a legacy numeric id, or anything else stored as a legacy id.
func RestaurantHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := d.Catalog.RestaurantDetail(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

// VendorRestaurantsHandler returns the calling vendor's restaurants.
func VendorRestaurantsHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, _ := auth.VendorFrom(r.Context())
		restaurants, err := d.Catalog.VendorRestaurants(r.Context(), vendor.ID)
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, restaurants)
	}
}

// CreateRestaurantHandler creates a restaurant owned by the calling vendor.
func CreateRestaurantHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, _ := auth.VendorFrom(r.Context())
		p, err := readPayload(r, d.Log)
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}

		created, err := d.Catalog.CreateRestaurant(r.Context(), vendor.ID, func(rest *models.Restaurant) error {
			return d.applyRestaurant(r, p, rest)
		})
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// UpdateRestaurantHandler updates fields of a restaurant the caller owns.
func UpdateRestaurantHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, _ := auth.VendorFrom(r.Context())
		p, err := readPayload(r, d.Log)
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}

		updated, err := d.Catalog.UpdateRestaurant(r.Context(), vendor.ID, r.PathValue("id"), func(rest *models.Restaurant) error {
			return d.applyRestaurant(r, p, rest)
		})
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// DeleteRestaurantHandler deletes a restaurant the caller owns.
func DeleteRestaurantHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, _ := auth.VendorFrom(r.Context())
		if err := d.Catalog.DeleteRestaurant(r.Context(), vendor.ID, r.PathValue("id")); err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		writeMessage(w, http.StatusOK, "Restaurant deleted successfully")
	}
}

// RestaurantImagesHandler appends uploaded gallery images.
func RestaurantImagesHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, _ := auth.VendorFrom(r.Context())
		p, err := readPayload(r, d.Log)
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		files := p.files["images"]
		if len(files) > maxGalleryUploads {
			writeMessage(w, http.StatusBadRequest, "Too many images; at most 5 per upload")
			return
		}

		updated, err := d.Catalog.AddRestaurantImages(r.Context(), vendor.ID, r.PathValue("id"), func() ([]string, error) {
			paths := make([]string, 0, len(files))
			for _, fh := range files {
				path, err := saveUpload(r.Context(), d.Uploads, fh)
				if err != nil {
					return nil, err
				}
				paths = append(paths, path)
			}
			return paths, nil
		})
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// applyRestaurant copies the fields present in p onto rest. An uploaded
// mainImage file takes precedence over a mainImage field.
func (d *Deps) applyRestaurant(r *http.Request, p *payload, rest *models.Restaurant) error {
	if v, ok := p.str("name"); ok {
		rest.Name = v
	}
	if v, ok := p.str("description"); ok {
		rest.Description = v
	}
	if v, ok := p.str("phone"); ok {
		rest.Phone = v
	}
	if v, ok := p.str("email"); ok {
		rest.Email = v
	}
	if v, ok := p.str("mainImage"); ok {
		rest.MainImage = v
	}
	if v, ok := p.boolean("isActive"); ok {
		rest.IsActive = v
	}
	radius, ok, err := p.float("deliveryRadius")
	if err != nil {
		return err
	}
	if ok {
		if radius < 0 {
			return fmt.Errorf("%w: deliveryRadius must not be negative", catalog.ErrValidation)
		}
		rest.DeliveryRadius = radius
	}
	if v, ok := p.list("categories"); ok {
		rest.Categories = v
	}
	if v, ok := p.list("images"); ok {
		rest.Images = v
	}

	var addr models.Address
	if p.object("address", &addr) {
		rest.Address = addr
	}
	var hours map[string]models.DayHours
	if p.object("openingHours", &hours) {
		rest.OpeningHours = hours
	}
	var metrics map[string]bool
	if p.object("sustainabilityMetrics", &metrics) {
		rest.SustainabilityMetrics = metrics
	}

	if fh := p.file("mainImage"); fh != nil {
		path, err := saveUpload(r.Context(), d.Uploads, fh)
		if err != nil {
			return err
		}
		rest.MainImage = path
	}
	return nil
}
