package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"foodhub/database"
	"foodhub/models"
)

type drifted struct {
	store      *database.Store
	restaurant *models.Restaurant
	legacyItem primitive.ObjectID
	lostItem   primitive.ObjectID
	listed     primitive.ObjectID
	dangling   primitive.ObjectID
}

// newDrifted builds a restaurant whose item list and category set disagree
// with its items in every way reconcile knows how to repair.
func newDrifted(t *testing.T) drifted {
	t.Helper()
	ctx := context.Background()
	store := database.NewMemory()

	r := &models.Restaurant{Name: "Mehfil Restaurant", LegacyID: "3", Categories: []string{"Biryani", "Stale"}}
	require.NoError(t, store.Restaurants.Insert(ctx, r))

	listed := &models.Item{Name: "Mutton Biryani", Price: 320, Category: "Biryani", Restaurant: models.NativeRef(r.ID)}
	require.NoError(t, store.Items.Insert(ctx, listed))
	lost := &models.Item{Name: "Chicken 65", Price: 249, Category: "Starters", Restaurant: models.NativeRef(r.ID)}
	require.NoError(t, store.Items.Insert(ctx, lost))
	legacyID, err := database.InsertRaw(store, database.ItemsCollection, bson.M{
		"name": "Double Ka Meetha", "price": 120, "category": "Desserts", "restaurant": "3",
	})
	require.NoError(t, err)

	dangling := primitive.NewObjectID()
	r.Items = []primitive.ObjectID{listed.ID, dangling}
	require.NoError(t, store.Restaurants.Replace(ctx, r))

	return drifted{store: store, restaurant: r, legacyItem: legacyID, lostItem: lost.ID, listed: listed.ID, dangling: dangling}
}

func (d drifted) reload(t *testing.T) *models.Restaurant {
	t.Helper()
	r, err := d.store.Restaurants.FindOne(context.Background(), models.AnyOf(models.EqID(models.FieldStorageID, d.restaurant.ID.Hex())))
	require.NoError(t, err)
	return r
}

func TestReconcileDryRunWritesNothing(t *testing.T) {
	d := newDrifted(t)
	report, err := NewReconciler(d.store, zap.NewNop(), Options{DryRun: true, PruneCategories: true}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Repairs, 1)
	rep := report.Repairs[0]
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, rep.UpgradedRefs)
	assert.Equal(t, 2, rep.AddedItems)
	assert.Equal(t, 1, rep.DroppedItems)
	assert.ElementsMatch(t, []string{"Starters", "Desserts"}, rep.AddedCategories)
	assert.Equal(t, []string{"Stale"}, rep.PrunedCategories)

	r := d.reload(t)
	assert.Equal(t, []primitive.ObjectID{d.listed, d.dangling}, r.Items)
	assert.Equal(t, []string{"Biryani", "Stale"}, r.Categories)
}

func TestReconcileRepairs(t *testing.T) {
	ctx := context.Background()
	d := newDrifted(t)
	report, err := NewReconciler(d.store, zap.NewNop(), Options{}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Restaurants)
	assert.Zero(t, report.Failed())

	r := d.reload(t)
	assert.ElementsMatch(t, []primitive.ObjectID{d.listed, d.lostItem, d.legacyItem}, r.Items)
	assert.ElementsMatch(t, []string{"Biryani", "Stale", "Starters", "Desserts"}, r.Categories)

	item, err := d.store.Items.FindOne(ctx, models.AnyOf(models.EqID(models.FieldStorageID, d.legacyItem.Hex())))
	require.NoError(t, err)
	assert.Equal(t, models.NativeRef(d.restaurant.ID), item.Restaurant)

	again, err := NewReconciler(d.store, zap.NewNop(), Options{}).Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Repairs)
}

func TestReconcilePrunesOnlyWhenAsked(t *testing.T) {
	ctx := context.Background()
	d := newDrifted(t)
	_, err := NewReconciler(d.store, zap.NewNop(), Options{PruneCategories: true, Concurrency: 1}).Run(ctx)
	require.NoError(t, err)

	r := d.reload(t)
	assert.ElementsMatch(t, []string{"Biryani", "Starters", "Desserts"}, r.Categories)
}

func TestReconcileKeepsItemsOwnedElsewhere(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemory()
	a := &models.Restaurant{Name: "Bawarchi"}
	b := &models.Restaurant{Name: "Pista House"}
	require.NoError(t, store.Restaurants.Insert(ctx, a))
	require.NoError(t, store.Restaurants.Insert(ctx, b))
	item := &models.Item{Name: "Haleem", Price: 220, Category: "Specials", Restaurant: models.NativeRef(b.ID)}
	require.NoError(t, store.Items.Insert(ctx, item))

	a.Items = []primitive.ObjectID{item.ID}
	require.NoError(t, store.Restaurants.Replace(ctx, a))

	report, err := NewReconciler(store, zap.NewNop(), Options{}).Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Repairs, 1)
	assert.Equal(t, b.ID, report.Repairs[0].Restaurant)

	got, err := store.Restaurants.FindOne(ctx, models.AnyOf(models.EqID(models.FieldStorageID, a.ID.Hex())))
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{item.ID}, got.Items)
}
