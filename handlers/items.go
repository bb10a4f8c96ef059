package handlers

import (
	"net/http"

	"foodhub/auth"
	"foodhub/models"
)

// ListItemsHandler returns every item.
func ListItemsHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := d.Catalog.ListItems(r.Context())
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// RestaurantItemsHandler returns the items of one restaurant. An unknown
// restaurant yields an empty list.
func RestaurantItemsHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := d.Catalog.ItemsForRestaurant(r.Context(), r.PathValue("restaurantId"))
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// ItemHandler returns one item by storage id or legacy id.
func ItemHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := d.Catalog.FindItem(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// CreateItemHandler adds an item to a restaurant the caller owns. The
// restaurant field may hold any identifier the restaurant is known by.
func CreateItemHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, _ := auth.VendorFrom(r.Context())
		p, err := readPayload(r, d.Log)
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		restaurantID, _ := p.str("restaurant")

		item, err := d.Catalog.CreateItem(r.Context(), vendor.ID, restaurantID, func(item *models.Item) error {
			return d.applyItem(r, p, item)
		})
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

// UpdateItemHandler updates an item of a restaurant the caller owns.
func UpdateItemHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, _ := auth.VendorFrom(r.Context())
		p, err := readPayload(r, d.Log)
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}

		item, err := d.Catalog.UpdateItem(r.Context(), vendor.ID, r.PathValue("id"), func(item *models.Item) error {
			return d.applyItem(r, p, item)
		})
		if err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// DeleteItemHandler deletes an item of a restaurant the caller owns.
func DeleteItemHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor, _ := auth.VendorFrom(r.Context())
		if err := d.Catalog.DeleteItem(r.Context(), vendor.ID, r.PathValue("id")); err != nil {
			writeError(w, d.Log, r, err)
			return
		}
		writeMessage(w, http.StatusOK, "Item deleted successfully")
	}
}

// applyItem copies the fields present in p onto item. The restaurant field
// is not applied here; items cannot move between restaurants.
func (d *Deps) applyItem(r *http.Request, p *payload, item *models.Item) error {
	if v, ok := p.str("name"); ok {
		item.Name = v
	}
	if v, ok := p.str("description"); ok {
		item.Description = v
	}
	if v, ok := p.str("category"); ok {
		item.Category = v
	}
	if v, ok := p.str("image"); ok {
		item.Image = v
	}
	if v, ok := p.str("legacyId"); ok {
		item.LegacyID = v
	}
	price, ok, err := p.float("price")
	if err != nil {
		return err
	}
	if ok {
		item.Price = price
	}
	if v, ok := p.boolean("isAvailable"); ok {
		item.IsAvailable = v
	}
	if v, ok := p.list("ingredients"); ok {
		item.Ingredients = v
	}

	var nutrition models.NutritionalInfo
	if p.object("nutritionalInfo", &nutrition) {
		item.NutritionalInfo = &nutrition
	}
	var diet models.SpecialDiet
	if p.object("specialDiet", &diet) {
		item.SpecialDiet = diet
	}

	if fh := p.file("image"); fh != nil {
		path, err := saveUpload(r.Context(), d.Uploads, fh)
		if err != nil {
			return err
		}
		item.Image = path
	}
	return nil
}
