// Package catalog implements restaurant and menu item operations on top of
// the document store: identifier resolution, ownership checks, and upkeep
// of the restaurant side of the item link (its item list and category set).
//
// The item and restaurant records are written one after the other with no
// transaction. The restaurant-side write reloads the restaurant, applies
// idempotent set operations and is retried, so a repeated or partially
// failed request converges; drift that survives is repaired by the
// reconcile pass in package worker.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"foodhub/database"
	"foodhub/models"
	"foodhub/resolver"
)

var (
	ErrRestaurantNotFound = errors.New("Restaurant not found")
	ErrItemNotFound       = errors.New("Item not found")
	// ErrNotOwner is wrapped with the attempted action, producing messages
	// such as "Not authorized to update this restaurant".
	ErrNotOwner   = errors.New("Not authorized")
	ErrValidation = errors.New("validation failed")
)

const (
	defaultLinkAttempts = 3
	defaultLinkBackoff  = 50 * time.Millisecond
)

// Service is safe for concurrent use.
type Service struct {
	store    *database.Store
	resolver *resolver.Resolver
	log      *zap.Logger

	linkAttempts int
	linkBackoff  time.Duration
}

// NewService returns the catalog backed by store.
func NewService(store *database.Store, res *resolver.Resolver, log *zap.Logger) *Service {
	return &Service{
		store:        store,
		resolver:     res,
		log:          log.Named("catalog"),
		linkAttempts: defaultLinkAttempts,
		linkBackoff:  defaultLinkBackoff,
	}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func authorize(r *models.Restaurant, vendorID primitive.ObjectID, action string) error {
	if !r.OwnedBy(vendorID) {
		return fmt.Errorf("%w to %s", ErrNotOwner, action)
	}
	return nil
}

// ListRestaurants returns every restaurant with display defaults applied.
func (s *Service) ListRestaurants(ctx context.Context) ([]*models.Restaurant, error) {
	restaurants, err := s.store.Restaurants.Find(ctx, models.Query{})
	if err != nil {
		return nil, err
	}
	if restaurants == nil {
		restaurants = []*models.Restaurant{}
	}
	for _, r := range restaurants {
		r.ApplyDisplayDefaults()
	}
	return restaurants, nil
}

// FindRestaurant resolves id under whichever identifier space it belongs to.
func (s *Service) FindRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	plan := s.resolver.Classify(id)
	r, err := s.store.Restaurants.FindOne(ctx, plan.Query)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrRestaurantNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// RestaurantDetail returns the restaurant named by id with its items
// embedded. Items are matched under every representation their restaurant
// reference may hold. A legacy id used in the request is echoed back as
// numericId so fixture-keyed clients can correlate the response.
func (s *Service) RestaurantDetail(ctx context.Context, id string) (*models.RestaurantDetail, error) {
	r, err := s.FindRestaurant(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.store.Items.Find(ctx, s.resolver.ItemsByRestaurant(id, r))
	if err != nil {
		return nil, err
	}

	if resolver.ClassifyKind(id) == resolver.Legacy {
		r.NumericID = id
	}
	r.ApplyDisplayDefaults()
	detail := &models.RestaurantDetail{Restaurant: *r, Items: make([]models.Item, 0, len(items))}
	for _, item := range items {
		item.ApplyDisplayDefaults()
		detail.Items = append(detail.Items, *item)
	}
	return detail, nil
}

// VendorRestaurants lists the restaurants owned by vendorID.
func (s *Service) VendorRestaurants(ctx context.Context, vendorID primitive.ObjectID) ([]*models.Restaurant, error) {
	restaurants, err := s.store.Restaurants.Find(ctx, models.AllOf(models.EqID(models.FieldVendor, vendorID.Hex())))
	if err != nil {
		return nil, err
	}
	if restaurants == nil {
		restaurants = []*models.Restaurant{}
	}
	for _, r := range restaurants {
		r.ApplyDisplayDefaults()
	}
	return restaurants, nil
}

// CreateRestaurant stores a new active restaurant owned by vendorID. fill
// sets the vendor-supplied fields.
func (s *Service) CreateRestaurant(ctx context.Context, vendorID primitive.ObjectID, fill func(*models.Restaurant) error) (*models.Restaurant, error) {
	r := &models.Restaurant{IsActive: true}
	if err := fill(r); err != nil {
		return nil, err
	}
	if r.Name == "" {
		return nil, validationError("name is required")
	}
	r.ID = primitive.NilObjectID
	r.Vendor = &vendorID
	r.ApplyCreateDefaults()
	if err := s.store.Restaurants.Insert(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("restaurant created",
		zap.String("restaurant", r.ID.Hex()),
		zap.String("vendor", vendorID.Hex()))
	r.ApplyDisplayDefaults()
	return r, nil
}

// UpdateRestaurant applies edit to the restaurant named by id. The storage
// id, owner and creation time cannot be changed by edit.
func (s *Service) UpdateRestaurant(ctx context.Context, vendorID primitive.ObjectID, id string, edit func(*models.Restaurant) error) (*models.Restaurant, error) {
	r, err := s.FindRestaurant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(r, vendorID, "update this restaurant"); err != nil {
		return nil, err
	}

	storageID, owner, created := r.ID, r.Vendor, r.CreatedAt
	if err := edit(r); err != nil {
		return nil, err
	}
	r.ID, r.Vendor, r.CreatedAt = storageID, owner, created
	if r.Name == "" {
		return nil, validationError("name is required")
	}

	if err := s.store.Restaurants.Replace(ctx, r); err != nil {
		return nil, err
	}
	r.ApplyDisplayDefaults()
	return r, nil
}

// DeleteRestaurant removes the restaurant named by id, then deletes the
// items that reference it. Item cleanup failures are logged and do not fail
// the request.
func (s *Service) DeleteRestaurant(ctx context.Context, vendorID primitive.ObjectID, id string) error {
	r, err := s.FindRestaurant(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(r, vendorID, "delete this restaurant"); err != nil {
		return err
	}
	if err := s.store.Restaurants.Delete(ctx, r.ID); err != nil {
		return err
	}

	log := s.log.With(zap.String("restaurant", r.ID.Hex()))
	items, err := s.store.Items.Find(ctx, models.AnyOf(resolver.RefClauses(r)...))
	if err != nil {
		log.Warn("cascade lookup failed", zap.Error(err))
		return nil
	}
	for _, item := range items {
		if err := s.store.Items.Delete(ctx, item.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
			log.Warn("cascade delete failed", zap.String("item", item.ID.Hex()), zap.Error(err))
		}
	}
	log.Info("restaurant deleted", zap.Int("items", len(items)))
	return nil
}

// AddRestaurantImages appends the paths returned by upload to the
// restaurant's gallery. upload runs only once ownership is established.
func (s *Service) AddRestaurantImages(ctx context.Context, vendorID primitive.ObjectID, id string, upload func() ([]string, error)) (*models.Restaurant, error) {
	return s.UpdateRestaurant(ctx, vendorID, id, func(r *models.Restaurant) error {
		paths, err := upload()
		if err != nil {
			return err
		}
		r.Images = append(r.Images, paths...)
		return nil
	})
}

// link reloads the restaurant and applies edit, which reports whether it
// changed anything. The reload-and-apply cycle is retried with linear
// backoff. A restaurant that no longer exists has nothing to link.
func (s *Service) link(ctx context.Context, restaurantID primitive.ObjectID, edit func(*models.Restaurant) bool) error {
	q := models.AnyOf(models.EqID(models.FieldStorageID, restaurantID.Hex()))
	var err error
	for attempt := 1; attempt <= s.linkAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * s.linkBackoff):
			}
		}

		var r *models.Restaurant
		r, err = s.store.Restaurants.FindOne(ctx, q)
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		if err == nil {
			if !edit(r) {
				return nil
			}
			err = s.store.Restaurants.Replace(ctx, r)
			if err == nil || errors.Is(err, database.ErrNotFound) {
				return nil
			}
		}
		s.log.Warn("restaurant link write failed",
			zap.String("restaurant", restaurantID.Hex()),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return fmt.Errorf("update restaurant %s: %w", restaurantID.Hex(), err)
}
