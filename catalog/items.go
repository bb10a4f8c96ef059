package catalog

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"foodhub/database"
	"foodhub/models"
	"foodhub/resolver"
)

// ListItems returns every item with display defaults applied.
func (s *Service) ListItems(ctx context.Context) ([]*models.Item, error) {
	items, err := s.store.Items.Find(ctx, models.Query{})
	if err != nil {
		return nil, err
	}
	return withItemDefaults(items), nil
}

// ItemsForRestaurant returns the items of the restaurant requested as
// restaurantID. An id that resolves to no restaurant still matches items
// whose reference holds it verbatim.
func (s *Service) ItemsForRestaurant(ctx context.Context, restaurantID string) ([]*models.Item, error) {
	r, err := s.FindRestaurant(ctx, restaurantID)
	if err != nil && !errors.Is(err, ErrRestaurantNotFound) {
		return nil, err
	}
	items, err := s.store.Items.Find(ctx, s.resolver.ItemsByRestaurant(restaurantID, r))
	if err != nil {
		return nil, err
	}
	return withItemDefaults(items), nil
}

// FindItem resolves an item by storage id or legacy id.
func (s *Service) FindItem(ctx context.Context, id string) (*models.Item, error) {
	item, err := s.findItem(ctx, id)
	if err != nil {
		return nil, err
	}
	item.ApplyDisplayDefaults()
	return item, nil
}

func (s *Service) findItem(ctx context.Context, id string) (*models.Item, error) {
	item, err := s.store.Items.FindOne(ctx, s.resolver.ClassifyItem(id).Query)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	return item, err
}

// restaurantFor loads the restaurant an item reference points at.
func (s *Service) restaurantFor(ctx context.Context, ref models.RestaurantRef) (*models.Restaurant, error) {
	switch ref.Kind {
	case models.RefNative:
		r, err := s.store.Restaurants.FindOne(ctx, models.AnyOf(models.EqID(models.FieldStorageID, ref.ID.Hex())))
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return r, err
	case models.RefLegacy:
		return s.FindRestaurant(ctx, ref.Value)
	default:
		return nil, ErrRestaurantNotFound
	}
}

func validateItem(item *models.Item) error {
	if item.Name == "" {
		return validationError("name is required")
	}
	if item.Price <= 0 {
		return validationError("price must be a positive number")
	}
	return nil
}

// CreateItem stores a new available item under the restaurant requested as
// restaurantID, which may be in any identifier space. fill sets the
// vendor-supplied fields and runs once ownership is established. The stored
// reference is always the restaurant's storage id.
func (s *Service) CreateItem(ctx context.Context, vendorID primitive.ObjectID, restaurantID string, fill func(*models.Item) error) (*models.Item, error) {
	if restaurantID == "" {
		return nil, validationError("restaurant is required")
	}
	r, err := s.FindRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if err := authorize(r, vendorID, "add items to this restaurant"); err != nil {
		return nil, err
	}

	item := &models.Item{IsAvailable: true}
	if err := fill(item); err != nil {
		return nil, err
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}
	item.ID = primitive.NilObjectID
	item.Restaurant = models.NativeRef(r.ID)
	if err := s.store.Items.Insert(ctx, item); err != nil {
		return nil, err
	}

	err = s.link(ctx, r.ID, func(r *models.Restaurant) bool {
		var itemsChanged, catsChanged bool
		r.Items, itemsChanged = addItemID(r.Items, item.ID)
		r.Categories, catsChanged = addCategory(r.Categories, item.Category)
		return itemsChanged || catsChanged
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem applies edit to the item named by id. The item stays with its
// restaurant; a legacy reference is upgraded to the restaurant's storage id.
// When the category changes, the old category is dropped from the
// restaurant once no sibling uses it and the new one is added.
func (s *Service) UpdateItem(ctx context.Context, vendorID primitive.ObjectID, id string, edit func(*models.Item) error) (*models.Item, error) {
	item, err := s.findItem(ctx, id)
	if err != nil {
		return nil, err
	}
	r, err := s.restaurantFor(ctx, item.Restaurant)
	if err != nil {
		return nil, err
	}
	if err := authorize(r, vendorID, "update items in this restaurant"); err != nil {
		return nil, err
	}

	storageID, created, oldCategory := item.ID, item.CreatedAt, item.Category
	if err := edit(item); err != nil {
		return nil, err
	}
	item.ID, item.CreatedAt = storageID, created
	item.Restaurant = models.NativeRef(r.ID)
	if err := validateItem(item); err != nil {
		return nil, err
	}
	if err := s.store.Items.Replace(ctx, item); err != nil {
		return nil, err
	}

	dropOld := false
	if oldCategory != item.Category && oldCategory != "" {
		n, err := s.countSiblings(ctx, r, item.ID, oldCategory)
		if err != nil {
			return nil, err
		}
		dropOld = n == 0
	}

	err = s.link(ctx, r.ID, func(r *models.Restaurant) bool {
		var a, b, c bool
		r.Items, a = addItemID(r.Items, item.ID)
		if dropOld {
			r.Categories, b = removeCategory(r.Categories, oldCategory)
		}
		r.Categories, c = addCategory(r.Categories, item.Category)
		return a || b || c
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes the item named by id and unlinks it from its
// restaurant, dropping its category when no sibling still uses it.
func (s *Service) DeleteItem(ctx context.Context, vendorID primitive.ObjectID, id string) error {
	item, err := s.findItem(ctx, id)
	if err != nil {
		return err
	}
	r, err := s.restaurantFor(ctx, item.Restaurant)
	if err != nil {
		return err
	}
	if err := authorize(r, vendorID, "delete items from this restaurant"); err != nil {
		return err
	}
	if err := s.store.Items.Delete(ctx, item.ID); err != nil {
		return err
	}

	dropCategory := false
	if item.Category != "" {
		n, err := s.countSiblings(ctx, r, item.ID, item.Category)
		if err != nil {
			return err
		}
		dropCategory = n == 0
	}

	return s.link(ctx, r.ID, func(r *models.Restaurant) bool {
		var a, b bool
		r.Items, a = removeItemID(r.Items, item.ID)
		if dropCategory {
			r.Categories, b = removeCategory(r.Categories, item.Category)
		}
		return a || b
	})
}

// countSiblings counts the restaurant's items other than exclude that use
// category. The count and the following set update are not atomic; two
// concurrent removals of a category's last items may both see a sibling
// and leave the category stale until the next reconcile.
func (s *Service) countSiblings(ctx context.Context, r *models.Restaurant, exclude primitive.ObjectID, category string) (int64, error) {
	q := models.AnyOf(resolver.RefClauses(r)...).
		And(models.Eq(models.FieldCategory, category)).
		Excluding(models.EqID(models.FieldStorageID, exclude.Hex()))
	n, err := s.store.Items.Count(ctx, q)
	if err != nil {
		s.log.Warn("sibling count failed", zap.String("restaurant", r.ID.Hex()), zap.Error(err))
	}
	return n, err
}

func withItemDefaults(items []*models.Item) []*models.Item {
	if items == nil {
		return []*models.Item{}
	}
	for _, item := range items {
		item.ApplyDisplayDefaults()
	}
	return items
}
