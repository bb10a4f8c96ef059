package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"foodhub/database"
	"foodhub/fixtures"
	"foodhub/models"
	"foodhub/resolver"
)

func newTestService(t *testing.T) (*Service, *database.Store) {
	t.Helper()
	store := database.NewMemory()
	svc := NewService(store, resolver.New(fixtures.Default()), zap.NewNop())
	svc.linkBackoff = 0
	return svc, store
}

func ownedRestaurant(t *testing.T, svc *Service, vendor primitive.ObjectID, categories ...string) *models.Restaurant {
	t.Helper()
	r, err := svc.CreateRestaurant(context.Background(), vendor, func(r *models.Restaurant) error {
		r.Name = "Cafe Bahar"
		r.Categories = categories
		return nil
	})
	require.NoError(t, err)
	return r
}

// addItem creates item through the service and writes the stored record
// back into item.
func addItem(svc *Service, ctx context.Context, vendor primitive.ObjectID, restaurantID string, item *models.Item) error {
	created, err := svc.CreateItem(ctx, vendor, restaurantID, func(i *models.Item) error {
		i.Name, i.Price, i.Category = item.Name, item.Price, item.Category
		return nil
	})
	if err != nil {
		return err
	}
	*item = *created
	return nil
}

func reload(t *testing.T, store *database.Store, id primitive.ObjectID) *models.Restaurant {
	t.Helper()
	r, err := store.Restaurants.FindOne(context.Background(), models.AnyOf(models.EqID(models.FieldStorageID, id.Hex())))
	require.NoError(t, err)
	return r
}

func TestRestaurantDetailForSeededLegacyRestaurant(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	require.NoError(t, store.Restaurants.Insert(ctx, &models.Restaurant{LegacyID: "3", Name: "Mehfil Restaurant"}))

	detail, err := svc.RestaurantDetail(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, []string{}, detail.Categories)
	assert.Equal(t, []models.Item{}, detail.Items)
	assert.Equal(t, models.DefaultMainImage, detail.MainImage)
	assert.Equal(t, "3", detail.NumericID)
}

func TestRestaurantDetailFindsByFixtureName(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	r := &models.Restaurant{Name: "Pista House"}
	require.NoError(t, store.Restaurants.Insert(ctx, r))
	_, err := database.InsertRaw(store, database.ItemsCollection, bson.M{"name": "Haleem", "price": 250.0, "restaurant": "5"})
	require.NoError(t, err)
	require.NoError(t, store.Items.Insert(ctx, &models.Item{Name: "Lukhmi", Price: 40, Restaurant: models.NativeRef(r.ID)}))

	detail, err := svc.RestaurantDetail(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, r.ID, detail.ID)
	require.Len(t, detail.Items, 2)
	for _, item := range detail.Items {
		assert.Equal(t, models.DefaultItemImage, item.Image)
		assert.Equal(t, models.DefaultItemCategory, item.Category)
	}
}

func TestFindRestaurantNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	for _, id := range []string{"64b7f0c2a1b2c3d4e5f60718", "42", "no-such-place"} {
		_, err := svc.FindRestaurant(context.Background(), id)
		assert.ErrorIs(t, err, ErrRestaurantNotFound, id)
	}
}

func TestFindRestaurantIgnoresHexCase(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	vendor := primitive.NewObjectID()
	r := ownedRestaurant(t, svc, vendor)
	item := &models.Item{Name: "Irani Chai", Price: 30}
	require.NoError(t, addItem(svc, ctx, vendor, r.ID.Hex(), item))

	upper := strings.ToUpper(r.ID.Hex())
	found, err := svc.FindRestaurant(ctx, upper)
	require.NoError(t, err)
	assert.Equal(t, r.ID, found.ID)

	detail, err := svc.RestaurantDetail(ctx, upper)
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, item.ID, detail.Items[0].ID)

	got, err := svc.FindItem(ctx, strings.ToUpper(item.ID.Hex()))
	require.NoError(t, err)
	assert.Equal(t, "Irani Chai", got.Name)
}

func TestCreateItemAddsCategory(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	vendor := primitive.NewObjectID()
	r := ownedRestaurant(t, svc, vendor, "Biryani")

	item := &models.Item{Name: "Chicken 65", Price: 249, Category: "Starters"}
	require.NoError(t, addItem(svc, ctx, vendor, r.ID.Hex(), item))

	got := reload(t, store, r.ID)
	assert.Equal(t, []string{"Biryani", "Starters"}, got.Categories)
	assert.Equal(t, []primitive.ObjectID{item.ID}, got.Items)
	assert.Equal(t, models.NativeRef(r.ID), item.Restaurant)

	require.NoError(t, svc.DeleteItem(ctx, vendor, item.ID.Hex()))
	got = reload(t, store, r.ID)
	assert.Equal(t, []string{"Biryani"}, got.Categories)
	assert.Empty(t, got.Items)
}

func TestCreateItemValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	vendor := primitive.NewObjectID()
	r := ownedRestaurant(t, svc, vendor)

	err := addItem(svc, ctx, vendor, r.ID.Hex(), &models.Item{Name: "Free Lunch", Price: 0})
	assert.ErrorIs(t, err, ErrValidation)
	err = addItem(svc, ctx, vendor, r.ID.Hex(), &models.Item{Price: 10})
	assert.ErrorIs(t, err, ErrValidation)
	err = addItem(svc, ctx, vendor, "", &models.Item{Name: "Tea", Price: 10})
	assert.ErrorIs(t, err, ErrValidation)
	err = addItem(svc, ctx, vendor, primitive.NewObjectID().Hex(), &models.Item{Name: "Tea", Price: 10})
	assert.ErrorIs(t, err, ErrRestaurantNotFound)
}

func TestUpdateItemMovesCategory(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	vendor := primitive.NewObjectID()
	r := ownedRestaurant(t, svc, vendor)

	kebab := &models.Item{Name: "Seekh Kebab", Price: 220, Category: "Kebabs"}
	tikka := &models.Item{Name: "Chicken Tikka", Price: 260, Category: "Kebabs"}
	require.NoError(t, addItem(svc, ctx, vendor, r.ID.Hex(), kebab))
	require.NoError(t, addItem(svc, ctx, vendor, r.ID.Hex(), tikka))

	_, err := svc.UpdateItem(ctx, vendor, tikka.ID.Hex(), func(i *models.Item) error {
		i.Category = "Starters"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Kebabs", "Starters"}, reload(t, store, r.ID).Categories)

	updated, err := svc.UpdateItem(ctx, vendor, kebab.ID.Hex(), func(i *models.Item) error {
		i.Category = "Starters"
		i.ID = primitive.NewObjectID()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, kebab.ID, updated.ID)
	assert.Equal(t, []string{"Starters"}, reload(t, store, r.ID).Categories)
}

func TestUpdateItemUpgradesLegacyReference(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	vendor := primitive.NewObjectID()
	r := &models.Restaurant{Name: "Kritunga Restaurant", LegacyID: "6", Vendor: &vendor}
	require.NoError(t, store.Restaurants.Insert(ctx, r))
	id, err := database.InsertRaw(store, database.ItemsCollection, bson.M{
		"name": "Ragi Sangati", "price": 180.0, "category": "Rayalaseema", "restaurant": "6",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateItem(ctx, vendor, id.Hex(), func(i *models.Item) error {
		i.Price = 190
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.NativeRef(r.ID), updated.Restaurant)

	got := reload(t, store, r.ID)
	assert.Equal(t, []primitive.ObjectID{id}, got.Items)
	assert.Equal(t, []string{"Rayalaseema"}, got.Categories)
}

func TestOwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	vendorA, vendorB := primitive.NewObjectID(), primitive.NewObjectID()
	r := ownedRestaurant(t, svc, vendorB, "Biryani")
	item := &models.Item{Name: "Mutton Biryani", Price: 350, Category: "Biryani"}
	require.NoError(t, addItem(svc, ctx, vendorB, r.ID.Hex(), item))

	noop := func(*models.Restaurant) error { return nil }
	_, err := svc.UpdateRestaurant(ctx, vendorA, r.ID.Hex(), noop)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.EqualError(t, err, "Not authorized to update this restaurant")
	assert.ErrorIs(t, svc.DeleteRestaurant(ctx, vendorA, r.ID.Hex()), ErrNotOwner)
	_, err = svc.AddRestaurantImages(ctx, vendorA, r.ID.Hex(), func() ([]string, error) {
		t.Fatal("upload must not run for a non-owner")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.ErrorIs(t, addItem(svc, ctx, vendorA, r.ID.Hex(), &models.Item{Name: "Tea", Price: 20}), ErrNotOwner)
	_, err = svc.UpdateItem(ctx, vendorA, item.ID.Hex(), func(*models.Item) error { return nil })
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.ErrorIs(t, svc.DeleteItem(ctx, vendorA, item.ID.Hex()), ErrNotOwner)

	legacy := &models.Restaurant{Name: "Hotel Shadab", LegacyID: "9"}
	require.NoError(t, store.Restaurants.Insert(ctx, legacy))
	_, err = svc.UpdateRestaurant(ctx, vendorA, "9", noop)
	assert.ErrorIs(t, err, ErrNotOwner, "restaurants without a vendor are not writable")

	assert.Equal(t, []string{"Biryani"}, reload(t, store, r.ID).Categories)
}

func TestUpdateRestaurantKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	vendor := primitive.NewObjectID()
	r := ownedRestaurant(t, svc, vendor)

	updated, err := svc.UpdateRestaurant(ctx, vendor, r.ID.Hex(), func(r *models.Restaurant) error {
		r.Name = "Cafe Bahar Basheerbagh"
		other := primitive.NewObjectID()
		r.Vendor = &other
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Cafe Bahar Basheerbagh", updated.Name)
	assert.True(t, updated.OwnedBy(vendor))

	_, err = svc.UpdateRestaurant(ctx, vendor, r.ID.Hex(), func(r *models.Restaurant) error {
		r.Name = ""
		return nil
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteRestaurantCascades(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	vendor := primitive.NewObjectID()
	r := ownedRestaurant(t, svc, vendor)
	other := ownedRestaurant(t, svc, vendor)
	require.NoError(t, addItem(svc, ctx, vendor, r.ID.Hex(), &models.Item{Name: "Irani Chai", Price: 20, Category: "Beverages"}))
	require.NoError(t, addItem(svc, ctx, vendor, other.ID.Hex(), &models.Item{Name: "Osmania Biscuit", Price: 10, Category: "Snacks"}))

	require.NoError(t, svc.DeleteRestaurant(ctx, vendor, r.ID.Hex()))
	_, err := svc.FindRestaurant(ctx, r.ID.Hex())
	assert.ErrorIs(t, err, ErrRestaurantNotFound)

	items, err := store.Items.Find(ctx, models.Query{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Osmania Biscuit", items[0].Name)
}

func TestItemsForRestaurantMatchesEveryRepresentation(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	r := &models.Restaurant{Name: "Bawarchi", LegacyID: "4"}
	require.NoError(t, store.Restaurants.Insert(ctx, r))
	require.NoError(t, store.Items.Insert(ctx, &models.Item{Name: "Chicken Biryani", Price: 280, Restaurant: models.NativeRef(r.ID)}))
	require.NoError(t, store.Items.Insert(ctx, &models.Item{Name: "Mutton Biryani", Price: 340, Restaurant: models.LegacyRef("4")}))
	require.NoError(t, store.Items.Insert(ctx, &models.Item{Name: "Elsewhere", Price: 10, Restaurant: models.LegacyRef("7")}))

	for _, id := range []string{"4", r.ID.Hex()} {
		items, err := svc.ItemsForRestaurant(ctx, id)
		require.NoError(t, err)
		assert.Len(t, items, 2, id)
	}

	items, err := svc.ItemsForRestaurant(ctx, "7")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Elsewhere", items[0].Name)

	items, err = svc.ItemsForRestaurant(ctx, "nowhere")
	require.NoError(t, err)
	assert.Equal(t, []*models.Item{}, items)
}

func TestFindItemUnknownHex(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.FindItem(context.Background(), "64b7f0c2a1b2c3d4e5f60718")
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.EqualError(t, err, "Item not found")
}

// Sequential create/update/delete must leave categories equal to the set of
// categories in use.
func TestCategorySetTracksItems(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	vendor := primitive.NewObjectID()
	r := ownedRestaurant(t, svc, vendor)
	categories := []string{"Biryani", "Starters", "Desserts", "Beverages"}
	rng := rand.New(rand.NewSource(7))

	var live []primitive.ObjectID
	for step := 0; step < 200; step++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(live) == 0:
			item := &models.Item{Name: fmt.Sprintf("dish %d", step), Price: 100, Category: categories[rng.Intn(len(categories))]}
			require.NoError(t, addItem(svc, ctx, vendor, r.ID.Hex(), item))
			live = append(live, item.ID)
		case op == 1:
			id := live[rng.Intn(len(live))]
			_, err := svc.UpdateItem(ctx, vendor, id.Hex(), func(i *models.Item) error {
				i.Category = categories[rng.Intn(len(categories))]
				return nil
			})
			require.NoError(t, err)
		default:
			i := rng.Intn(len(live))
			require.NoError(t, svc.DeleteItem(ctx, vendor, live[i].Hex()))
			live = slices.Delete(live, i, i+1)
		}

		items, err := store.Items.Find(ctx, models.Query{})
		require.NoError(t, err)
		var want []string
		for _, item := range items {
			if !slices.Contains(want, item.Category) {
				want = append(want, item.Category)
			}
		}
		got := reload(t, store, r.ID)
		assert.ElementsMatch(t, want, got.Categories, "step %d", step)
		assert.ElementsMatch(t, live, got.Items, "step %d", step)
	}
}

type flakyRestaurants struct {
	database.Collection[models.Restaurant]
	failures int
	calls    int
}

func (f *flakyRestaurants) Replace(ctx context.Context, r *models.Restaurant) error {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset")
	}
	return f.Collection.Replace(ctx, r)
}

func TestLinkWriteRetries(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	vendor := primitive.NewObjectID()
	r := ownedRestaurant(t, svc, vendor)

	flaky := &flakyRestaurants{Collection: store.Restaurants, failures: 2}
	store.Restaurants = flaky
	require.NoError(t, addItem(svc, ctx, vendor, r.ID.Hex(), &models.Item{Name: "Lassi", Price: 60, Category: "Beverages"}))
	assert.Equal(t, 3, flaky.calls)
	assert.Equal(t, []string{"Beverages"}, reload(t, store, r.ID).Categories)

	flaky.failures, flaky.calls = 5, 0
	err := addItem(svc, ctx, vendor, r.ID.Hex(), &models.Item{Name: "Falooda", Price: 120, Category: "Desserts"})
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, defaultLinkAttempts, flaky.calls)
}

func TestSeedIsRepeatable(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	table := fixtures.Default()

	report, err := svc.Seed(ctx, table, false)
	require.NoError(t, err)
	assert.Equal(t, table.Len(), report.Restaurants)
	assert.Positive(t, report.Items)

	again, err := svc.Seed(ctx, table, false)
	require.NoError(t, err)
	assert.Equal(t, SeedReport{Skipped: table.Len()}, again)

	detail, err := svc.RestaurantDetail(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Paradise Biryani", detail.Name)
	assert.NotEmpty(t, detail.Items)
	assert.Len(t, detail.Restaurant.Items, len(detail.Items))
	for _, item := range detail.Items {
		assert.Contains(t, detail.Categories, item.Category)
	}

	reset, err := svc.Seed(ctx, table, true)
	require.NoError(t, err)
	assert.Equal(t, table.Len(), reset.Restaurants)
	n, err := store.Restaurants.Count(ctx, models.Query{})
	require.NoError(t, err)
	assert.EqualValues(t, table.Len(), n)
}
