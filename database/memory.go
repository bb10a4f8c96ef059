package database

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/models"
)

// NewMemory returns a store that keeps BSON-encoded documents in process
// memory. It backs tests and the degraded mode used when the configured
// database cannot be reached.
func NewMemory() *Store {
	return &Store{
		Backend:     "memory",
		Restaurants: newMemCollection[models.Restaurant](),
		Items:       newMemCollection[models.Item](),
		Vendors:     newMemCollection[models.Vendor](),
	}
}

type memCollection[T any, PT docPtr[T]] struct {
	mu    sync.RWMutex
	order []primitive.ObjectID
	docs  map[primitive.ObjectID]bson.Raw
}

func newMemCollection[T any, PT docPtr[T]]() *memCollection[T, PT] {
	return &memCollection[T, PT]{docs: make(map[primitive.ObjectID]bson.Raw)}
}

func (c *memCollection[T, PT]) scan(q models.Query, limit int) ([]*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*T
	for _, id := range c.order {
		raw := c.docs[id]
		var fields bson.M
		if err := bson.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id.Hex(), err)
		}
		if !matches(fields, q) {
			continue
		}
		doc, err := decodeInto[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (c *memCollection[T, PT]) FindOne(_ context.Context, q models.Query) (*T, error) {
	docs, err := c.scan(q, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (c *memCollection[T, PT]) Find(_ context.Context, q models.Query) ([]*T, error) {
	return c.scan(q, 0)
}

func (c *memCollection[T, PT]) Count(_ context.Context, q models.Query) (int64, error) {
	docs, err := c.scan(q, 0)
	return int64(len(docs)), err
}

func (c *memCollection[T, PT]) Insert(_ context.Context, doc *T) error {
	prepareInsert[T, PT](doc)
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	id := PT(doc).StorageID()
	if _, exists := c.docs[id]; exists {
		return fmt.Errorf("insert: duplicate storage id %s", id.Hex())
	}
	c.order = append(c.order, id)
	c.docs[id] = raw
	return nil
}

func (c *memCollection[T, PT]) Replace(_ context.Context, doc *T) error {
	if err := prepareReplace[T, PT](doc); err != nil {
		return err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	id := PT(doc).StorageID()
	if _, exists := c.docs[id]; !exists {
		return ErrNotFound
	}
	c.docs[id] = raw
	return nil
}

func (c *memCollection[T, PT]) Delete(_ context.Context, id primitive.ObjectID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.docs[id]; !exists {
		return ErrNotFound
	}
	delete(c.docs, id)
	c.order = slices.DeleteFunc(c.order, func(o primitive.ObjectID) bool { return o == id })
	return nil
}

func (c *memCollection[T, PT]) DeleteAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.docs = make(map[primitive.ObjectID]bson.Raw)
	return nil
}

type rawInserter interface {
	insertRaw(id primitive.ObjectID, raw bson.Raw)
}

// InsertRaw stores an arbitrary BSON document in a memory store, bypassing
// the typed model. Tests use it to plant records in shapes the service no
// longer writes, such as items whose restaurant reference is a hex string.
func InsertRaw(s *Store, collection string, doc bson.M) (primitive.ObjectID, error) {
	id, ok := doc["_id"].(primitive.ObjectID)
	if !ok {
		id = primitive.NewObjectID()
		doc["_id"] = id
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return primitive.NilObjectID, err
	}

	var coll any
	switch collection {
	case RestaurantsCollection:
		coll = s.Restaurants
	case ItemsCollection:
		coll = s.Items
	case VendorsCollection:
		coll = s.Vendors
	}
	target, ok := coll.(rawInserter)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("raw insert unsupported for %s on %s", collection, s.Backend)
	}
	target.insertRaw(id, raw)
	return id, nil
}

func (c *memCollection[T, PT]) insertRaw(id primitive.ObjectID, raw bson.Raw) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = raw
}
