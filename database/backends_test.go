package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"foodhub/models"
)

func TestMongoFilter(t *testing.T) {
	id := primitive.NewObjectID()

	assert.Equal(t, bson.M{}, mongoFilter(models.Query{}))
	assert.Equal(t,
		bson.M{"$or": bson.A{bson.M{"_id": id}}},
		mongoFilter(models.AnyOf(models.EqID(models.FieldStorageID, id.Hex()))))

	got := mongoFilter(models.AnyOf(
		models.EqID(models.FieldRestaurant, id.Hex()),
		models.Eq(models.FieldRestaurant, "3"),
	).And(models.Eq(models.FieldCategory, "Biryani")).Excluding(models.EqID(models.FieldStorageID, id.Hex())))
	assert.Equal(t, bson.M{"$and": bson.A{
		bson.M{"$or": bson.A{bson.M{"restaurant": id}, bson.M{"restaurant": "3"}}},
		bson.M{"category": "Biryani"},
		bson.M{"$nor": bson.A{bson.M{"_id": id}}},
	}}, got)
}

func TestPostgresWhere(t *testing.T) {
	where, args := pgWhere(models.AnyOf(
		models.EqID(models.FieldRestaurant, "64b7f0c2a1b2c3d4e5f60718"),
		models.Eq(models.FieldRestaurant, "3"),
	).Excluding(models.Eq(models.FieldLegacyID, "9")))

	assert.Equal(t,
		"collection = $1 AND (COALESCE(body->'restaurant'->>'$oid' = $2, false) OR "+
			"COALESCE(jsonb_typeof(body->'restaurant') = 'string' AND body->>'restaurant' = $3, false)) AND "+
			"NOT COALESCE(jsonb_typeof(body->'legacyId') = 'string' AND body->>'legacyId' = $4, false)",
		where)
	assert.Equal(t, []any{nil, "64b7f0c2a1b2c3d4e5f60718", "3", "9"}, args)
}

func TestScheme(t *testing.T) {
	assert.Equal(t, "mongodb+srv", scheme("mongodb+srv://user:pw@cluster0.example.net"))
	assert.Equal(t, "postgresql", scheme("POSTGRESQL://localhost/app"))
	assert.Equal(t, "", scheme(""))
}

// The conformance suite runs against every backend reachable from the test
// environment. Memory always runs; the servers run when their URL is set.
func TestBackendConformance(t *testing.T) {
	backends := map[string]string{"memory": "memory://"}
	if url := os.Getenv("FOODHUB_TEST_MONGO_URI"); url != "" {
		backends["mongo"] = url
	}
	if url := os.Getenv("FOODHUB_TEST_POSTGRES_URL"); url != "" {
		backends["postgres"] = url
	}

	for name, url := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store, err := Connect(ctx, url, "foodhub-test", 5*time.Second, zap.NewNop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close(context.Background()) })
			require.NoError(t, store.Restaurants.DeleteAll(ctx))
			require.NoError(t, store.Items.DeleteAll(ctx))
			require.NoError(t, store.Vendors.DeleteAll(ctx))

			vendorID := primitive.NewObjectID()
			r := &models.Restaurant{Name: "Cafe Bahar", LegacyID: "8", Vendor: &vendorID, Categories: []string{"Biryani"}}
			require.NoError(t, store.Restaurants.Insert(ctx, r))

			item := &models.Item{Name: "Chicken Biryani", Price: 300, Category: "Biryani", Restaurant: models.NativeRef(r.ID)}
			require.NoError(t, store.Items.Insert(ctx, item))
			legacy := &models.Item{Name: "Double Ka Meetha", Price: 90, Category: "Desserts", Restaurant: models.LegacyRef("8")}
			require.NoError(t, store.Items.Insert(ctx, legacy))

			items, err := store.Items.Find(ctx, models.AnyOf(
				models.EqID(models.FieldRestaurant, r.ID.Hex()),
				models.Eq(models.FieldRestaurant, "8"),
			))
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, models.RefNative, items[0].Restaurant.Kind)
			assert.Equal(t, r.ID, items[0].Restaurant.ID)
			assert.Equal(t, models.RefLegacy, items[1].Restaurant.Kind)
			assert.Equal(t, "8", items[1].Restaurant.Value)

			owned, err := store.Restaurants.FindOne(ctx, models.AllOf(models.EqID(models.FieldVendor, vendorID.Hex())))
			require.NoError(t, err)
			assert.Equal(t, r.ID, owned.ID)
			assert.True(t, owned.OwnedBy(vendorID))

			n, err := store.Items.Count(ctx, models.AnyOf(models.EqID(models.FieldRestaurant, r.ID.Hex())).
				And(models.Eq(models.FieldCategory, "Biryani")).
				Excluding(models.EqID(models.FieldStorageID, item.ID.Hex())))
			require.NoError(t, err)
			assert.Zero(t, n)

			require.NoError(t, store.Items.Delete(ctx, legacy.ID))
			assert.ErrorIs(t, store.Items.Delete(ctx, legacy.ID), ErrNotFound)
		})
	}
}
