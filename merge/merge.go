// Package merge overlays bundled fixture data onto restaurant records
// fetched from the API so that a record with missing display fields still
// renders completely.
package merge

import (
	"maps"
	"slices"

	"foodhub/fixtures"
	"foodhub/models"
	"foodhub/resolver"
)

// MenuEntry is the display shape of a menu item. StorageID carries the
// server's id as received; ID is what clients key on.
type MenuEntry struct {
	StorageID   string  `json:"_id,omitempty"`
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	Restaurant  string  `json:"restaurant,omitempty"`
}

// Normalize fills the display defaults and settles ID on the storage id
// when there is one.
func (e *MenuEntry) Normalize() {
	if e.StorageID != "" {
		e.ID = e.StorageID
	}
	if e.Description == "" {
		e.Description = models.DefaultItemDescription
	}
	if e.Image == "" {
		e.Image = models.DefaultItemImage
	}
	if e.Category == "" {
		e.Category = models.DefaultItemCategory
	}
}

// Record is a restaurant as the client displays it.
type Record struct {
	ID                    string          `json:"_id,omitempty"`
	Name                  string          `json:"name"`
	LegacyID              string          `json:"legacyId,omitempty"`
	NumericID             string          `json:"numericId,omitempty"`
	Description           string          `json:"description,omitempty"`
	MainImage             string          `json:"mainImage,omitempty"`
	Categories            []string        `json:"categories"`
	Items                 []MenuEntry     `json:"items"`
	SustainabilityMetrics map[string]bool `json:"sustainabilityMetrics,omitempty"`
	Address               models.Address  `json:"address"`
	Phone                 string          `json:"phone,omitempty"`
	DeliveryRadius        float64         `json:"deliveryRadius,omitempty"`
	IsActive              bool            `json:"isActive"`
	// Offer only ever comes from a fixture.
	Offer string `json:"offer,omitempty"`
}

func (r Record) clone() Record {
	out := r
	out.Categories = slices.Clone(r.Categories)
	out.Items = slices.Clone(r.Items)
	out.SustainabilityMetrics = maps.Clone(r.SustainabilityMetrics)
	return out
}

// FixtureRecord renders a fixture restaurant as a record. It is what the
// client shows when the API cannot be reached.
func FixtureRecord(fr fixtures.Restaurant) Record {
	rec := Record{
		Name:                  fr.Name,
		LegacyID:              fr.LegacyID,
		NumericID:             fr.LegacyID,
		Description:           fr.Description,
		MainImage:             fr.Image,
		Categories:            slices.Clone(fr.Categories),
		Items:                 FixtureItems(fr),
		SustainabilityMetrics: maps.Clone(fr.SustainabilityMetrics),
		Address:               models.Address{Street: fr.Area},
		IsActive:              true,
		Offer:                 fr.Offer,
	}
	if rec.Categories == nil {
		rec.Categories = []string{}
	}
	if rec.MainImage == "" {
		rec.MainImage = models.DefaultMainImage
	}
	return rec
}

// FixtureItems renders the menu of a fixture restaurant.
func FixtureItems(fr fixtures.Restaurant) []MenuEntry {
	out := make([]MenuEntry, 0, len(fr.Items))
	for _, it := range fr.Items {
		e := MenuEntry{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Price:       it.Price,
			Image:       it.Image,
			Category:    it.Category,
			Restaurant:  fr.LegacyID,
		}
		e.Normalize()
		out = append(out, e)
	}
	return out
}

// Merger fills gaps in API records from the fixture table. It never writes
// to the table and is safe for concurrent use.
type Merger struct {
	table *fixtures.Table
}

func New(table *fixtures.Table) *Merger {
	return &Merger{table: table}
}

// Fixture locates the fixture counterpart of rec. A legacy-shaped
// requestedID names the fixture directly; otherwise the record's own
// numeric id, legacy id and name are tried in that order.
func (m *Merger) Fixture(rec Record, requestedID string) (fixtures.Restaurant, bool) {
	if resolver.ClassifyKind(requestedID) == resolver.Legacy {
		if fr, ok := m.table.Restaurant(requestedID); ok {
			return fr, true
		}
	}
	for _, id := range []string{rec.NumericID, rec.LegacyID} {
		if id == "" {
			continue
		}
		if fr, ok := m.table.Restaurant(id); ok {
			return fr, true
		}
	}
	if id, ok := m.table.LegacyIDFor(rec.Name); ok {
		return m.table.Restaurant(id)
	}
	return fixtures.Restaurant{}, false
}

// Merge returns rec with empty display fields taken from its fixture
// counterpart, field by field. Fields rec already carries are kept as they
// are. Items are normalized whether or not a fixture was found, and
// applying Merge to its own result changes nothing.
func (m *Merger) Merge(rec Record, requestedID string) Record {
	out := rec.clone()
	if fr, ok := m.Fixture(rec, requestedID); ok {
		if len(out.Categories) == 0 {
			out.Categories = slices.Clone(fr.Categories)
		}
		if len(out.Items) == 0 {
			out.Items = FixtureItems(fr)
		}
		if len(out.SustainabilityMetrics) == 0 {
			out.SustainabilityMetrics = maps.Clone(fr.SustainabilityMetrics)
		}
		if out.MainImage == "" {
			out.MainImage = fr.Image
		}
		if out.Description == "" {
			out.Description = fr.Description
		}
		if out.Offer == "" {
			out.Offer = fr.Offer
		}
	}

	for i := range out.Items {
		out.Items[i].Normalize()
	}
	if out.Categories == nil {
		out.Categories = []string{}
	}
	if out.Items == nil {
		out.Items = []MenuEntry{}
	}
	if out.MainImage == "" {
		out.MainImage = models.DefaultMainImage
	}
	return out
}
