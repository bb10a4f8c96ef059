package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"foodhub/models"
)

// ErrDuplicate is returned when an insert violates a unique index.
var ErrDuplicate = errors.New("duplicate key")

func connectMongo(ctx context.Context, uri, name string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(name)
	_, err = db.Collection(VendorsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: models.FieldEmail, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo vendor email index: %w", err)
	}

	return &Store{
		Backend:     "mongo",
		Restaurants: &mongoCollection[models.Restaurant, *models.Restaurant]{coll: db.Collection(RestaurantsCollection)},
		Items:       &mongoCollection[models.Item, *models.Item]{coll: db.Collection(ItemsCollection)},
		Vendors:     &mongoCollection[models.Vendor, *models.Vendor]{coll: db.Collection(VendorsCollection)},
		close:       client.Disconnect,
	}, nil
}

type mongoCollection[T any, PT docPtr[T]] struct {
	coll *mongo.Collection
}

// mongoFilter translates q into a server-side filter. Native clauses carry
// ObjectID values so they only match ObjectID-typed fields.
func mongoFilter(q models.Query) bson.M {
	var and bson.A
	if len(q.Any) > 0 {
		or := make(bson.A, 0, len(q.Any))
		for _, c := range q.Any {
			or = append(or, mongoClause(c))
		}
		and = append(and, bson.M{"$or": or})
	}
	for _, c := range q.All {
		and = append(and, mongoClause(c))
	}
	if len(q.Not) > 0 {
		nor := make(bson.A, 0, len(q.Not))
		for _, c := range q.Not {
			nor = append(nor, mongoClause(c))
		}
		and = append(and, bson.M{"$nor": nor})
	}

	switch len(and) {
	case 0:
		return bson.M{}
	case 1:
		return and[0].(bson.M)
	default:
		return bson.M{"$and": and}
	}
}

func mongoClause(c models.Clause) bson.M {
	if c.Native {
		id, err := primitive.ObjectIDFromHex(c.Value)
		if err != nil {
			// An unparsable native value can never match an ObjectID field.
			return bson.M{c.Field: bson.M{"$in": bson.A{}}}
		}
		return bson.M{c.Field: id}
	}
	return bson.M{c.Field: c.Value}
}

func (c *mongoCollection[T, PT]) FindOne(ctx context.Context, q models.Query) (*T, error) {
	doc := new(T)
	err := c.coll.FindOne(ctx, mongoFilter(q), options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s find one: %w", c.coll.Name(), err)
	}
	return doc, nil
}

func (c *mongoCollection[T, PT]) Find(ctx context.Context, q models.Query) ([]*T, error) {
	cur, err := c.coll.Find(ctx, mongoFilter(q), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s find: %w", c.coll.Name(), err)
	}
	var docs []*T
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s decode: %w", c.coll.Name(), err)
	}
	return docs, nil
}

func (c *mongoCollection[T, PT]) Count(ctx context.Context, q models.Query) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, mongoFilter(q))
	if err != nil {
		return 0, fmt.Errorf("%s count: %w", c.coll.Name(), err)
	}
	return n, nil
}

func (c *mongoCollection[T, PT]) Insert(ctx context.Context, doc *T) error {
	prepareInsert[T, PT](doc)
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s insert: %w", c.coll.Name(), ErrDuplicate)
		}
		return fmt.Errorf("%s insert: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *mongoCollection[T, PT]) Replace(ctx context.Context, doc *T) error {
	if err := prepareReplace[T, PT](doc); err != nil {
		return err
	}
	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": PT(doc).StorageID()}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s replace: %w", c.coll.Name(), ErrDuplicate)
		}
		return fmt.Errorf("%s replace: %w", c.coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection[T, PT]) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("%s delete: %w", c.coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection[T, PT]) DeleteAll(ctx context.Context) error {
	if _, err := c.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("%s delete all: %w", c.coll.Name(), err)
	}
	return nil
}
