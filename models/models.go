package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is implemented by every type persisted in a collection. The store
// assigns the storage id on insert and refreshes timestamps on every write.
type Document interface {
	StorageID() primitive.ObjectID
	SetStorageID(id primitive.ObjectID)
	Touch(now time.Time)
}

// Address is the postal address shared by restaurants and vendors.
type Address struct {
	Street  string `bson:"street,omitempty" json:"street,omitempty"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	State   string `bson:"state,omitempty" json:"state,omitempty"`
	ZipCode string `bson:"zipCode,omitempty" json:"zipCode,omitempty"`
	Country string `bson:"country,omitempty" json:"country,omitempty"`
}

// DayHours holds the opening window for a single weekday.
type DayHours struct {
	Open  string `bson:"open,omitempty" json:"open,omitempty"`
	Close string `bson:"close,omitempty" json:"close,omitempty"`
}

// Restaurant represents a listed establishment. It carries three identities:
// the storage id, and the optional legacyId/numericId assigned by fixture
// seeding. The latter two are not kept in agreement.
type Restaurant struct {
	ID                    primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name                  string               `bson:"name" json:"name"`
	LegacyID              string               `bson:"legacyId,omitempty" json:"legacyId,omitempty"`
	NumericID             string               `bson:"numericId,omitempty" json:"numericId,omitempty"`
	Description           string               `bson:"description,omitempty" json:"description,omitempty"`
	SustainabilityMetrics map[string]bool      `bson:"sustainabilityMetrics,omitempty" json:"sustainabilityMetrics,omitempty"`
	Categories            []string             `bson:"categories" json:"categories"`
	Items                 []primitive.ObjectID `bson:"items" json:"items"`
	Vendor                *primitive.ObjectID  `bson:"vendor,omitempty" json:"vendor,omitempty"`
	Address               Address              `bson:"address,omitempty" json:"address"`
	Phone                 string               `bson:"phone,omitempty" json:"phone,omitempty"`
	Email                 string               `bson:"email,omitempty" json:"email,omitempty"`
	OpeningHours          map[string]DayHours  `bson:"openingHours,omitempty" json:"openingHours,omitempty"`
	Images                []string             `bson:"images" json:"images"`
	MainImage             string               `bson:"mainImage,omitempty" json:"mainImage,omitempty"`
	DeliveryRadius        float64              `bson:"deliveryRadius" json:"deliveryRadius"`
	IsActive              bool                 `bson:"isActive" json:"isActive"`
	CreatedAt             time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (r *Restaurant) StorageID() primitive.ObjectID      { return r.ID }
func (r *Restaurant) SetStorageID(id primitive.ObjectID) { r.ID = id }

func (r *Restaurant) Touch(now time.Time) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}

// OwnedBy reports whether vendorID is the restaurant's owning vendor.
// Restaurants imported without a vendor are owned by nobody.
func (r *Restaurant) OwnedBy(vendorID primitive.ObjectID) bool {
	return r.Vendor != nil && !vendorID.IsZero() && *r.Vendor == vendorID
}

// NutritionalInfo is the optional per-item nutrition panel.
type NutritionalInfo struct {
	Calories float64 `bson:"calories,omitempty" json:"calories,omitempty"`
	Protein  float64 `bson:"protein,omitempty" json:"protein,omitempty"`
	Carbs    float64 `bson:"carbs,omitempty" json:"carbs,omitempty"`
	Fat      float64 `bson:"fat,omitempty" json:"fat,omitempty"`
}

// SpecialDiet flags dietary suitability of an item.
type SpecialDiet struct {
	IsVegetarian bool `bson:"isVegetarian" json:"isVegetarian"`
	IsVegan      bool `bson:"isVegan" json:"isVegan"`
	IsGlutenFree bool `bson:"isGlutenFree" json:"isGlutenFree"`
}

// Item is a single menu entry. Restaurant may reference its parent by
// storage id or by a raw legacy string written before references were
// upgraded on write.
type Item struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name            string             `bson:"name" json:"name"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	Price           float64            `bson:"price" json:"price"`
	Image           string             `bson:"image,omitempty" json:"image,omitempty"`
	Category        string             `bson:"category,omitempty" json:"category,omitempty"`
	LegacyID        string             `bson:"legacyId,omitempty" json:"legacyId,omitempty"`
	Restaurant      RestaurantRef      `bson:"restaurant,omitempty" json:"restaurant"`
	IsAvailable     bool               `bson:"isAvailable" json:"isAvailable"`
	Ingredients     []string           `bson:"ingredients,omitempty" json:"ingredients,omitempty"`
	NutritionalInfo *NutritionalInfo   `bson:"nutritionalInfo,omitempty" json:"nutritionalInfo,omitempty"`
	SpecialDiet     SpecialDiet        `bson:"specialDiet" json:"specialDiet"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (i *Item) StorageID() primitive.ObjectID      { return i.ID }
func (i *Item) SetStorageID(id primitive.ObjectID) { i.ID = id }

func (i *Item) Touch(now time.Time) {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	i.UpdatedAt = now
}

// Vendor is a restaurant owner account. Password holds the bcrypt digest and
// is never serialized to clients.
type Vendor struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email        string             `bson:"email" json:"email"`
	Password     string             `bson:"password" json:"-"`
	BusinessName string             `bson:"businessName" json:"businessName"`
	Phone        string             `bson:"phone" json:"phone"`
	Address      Address            `bson:"address" json:"address"`
	ProfileImage string             `bson:"profileImage" json:"profileImage"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (v *Vendor) StorageID() primitive.ObjectID      { return v.ID }
func (v *Vendor) SetStorageID(id primitive.ObjectID) { v.ID = id }

func (v *Vendor) Touch(now time.Time) {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
}

// RestaurantDetail is a restaurant with its items embedded in place of the
// item id list.
type RestaurantDetail struct {
	Restaurant
	Items []Item `json:"items"`
}
