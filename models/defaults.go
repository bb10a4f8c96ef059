package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Display defaults applied to every record leaving the service, whether it
// came from the store directly or through a fixture overlay.
const (
	DefaultMainImage       = "https://images.unsplash.com/photo-1555396273-367ea4eb4db5?q=80&w=2074"
	DefaultItemImage       = "https://images.unsplash.com/photo-1546069901-ba9599a7e63c?q=80&w=2080"
	DefaultItemDescription = "A delicious dish prepared with the finest ingredients."
	DefaultItemCategory    = "Other"
	DefaultCountry         = "India"
	DefaultProfileImage    = "default-profile.jpg"
	DefaultDeliveryRadius  = 5
)

// ApplyDisplayDefaults fills the display fields a client expects to be
// present. Stored values are never replaced.
func (r *Restaurant) ApplyDisplayDefaults() {
	if r.MainImage == "" {
		r.MainImage = DefaultMainImage
	}
	if r.Categories == nil {
		r.Categories = []string{}
	}
	if r.Items == nil {
		r.Items = []primitive.ObjectID{}
	}
	if r.Images == nil {
		r.Images = []string{}
	}
}

func (i *Item) ApplyDisplayDefaults() {
	if i.Image == "" {
		i.Image = DefaultItemImage
	}
	if i.Category == "" {
		i.Category = DefaultItemCategory
	}
	if i.Description == "" {
		i.Description = DefaultItemDescription
	}
}

// ApplyCreateDefaults sets the values a new restaurant starts with when the
// vendor left them out.
func (r *Restaurant) ApplyCreateDefaults() {
	if r.MainImage == "" {
		r.MainImage = DefaultMainImage
	}
	if r.DeliveryRadius == 0 {
		r.DeliveryRadius = DefaultDeliveryRadius
	}
	if r.Address.Country == "" {
		r.Address.Country = DefaultCountry
	}
	if r.Categories == nil {
		r.Categories = []string{}
	}
	if r.Items == nil {
		r.Items = []primitive.ObjectID{}
	}
}
