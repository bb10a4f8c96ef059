package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/models"
)

// ErrNotFound is returned when a query matches no document.
var ErrNotFound = errors.New("document not found")

// Collection is the document-store capability the service is written
// against: find, count, insert, replace and delete by query.
type Collection[T any] interface {
	FindOne(ctx context.Context, q models.Query) (*T, error)
	Find(ctx context.Context, q models.Query) ([]*T, error)
	Count(ctx context.Context, q models.Query) (int64, error)
	// Insert assigns a storage id (when unset) and timestamps.
	Insert(ctx context.Context, doc *T) error
	// Replace overwrites the stored document with the same storage id.
	Replace(ctx context.Context, doc *T) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteAll(ctx context.Context) error
}

// docPtr constrains the pointer form of a document type.
type docPtr[T any] interface {
	*T
	models.Document
}

// Collection names.
const (
	RestaurantsCollection = "restaurants"
	ItemsCollection       = "items"
	VendorsCollection     = "vendors"
)

// Store groups the collections of one backend.
type Store struct {
	Backend     string
	Restaurants Collection[models.Restaurant]
	Items       Collection[models.Item]
	Vendors     Collection[models.Vendor]

	close func(ctx context.Context) error
}

// Close releases the backend connection.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

var now = func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

func prepareInsert[T any, PT docPtr[T]](doc *T) {
	d := PT(doc)
	if d.StorageID().IsZero() {
		d.SetStorageID(primitive.NewObjectID())
	}
	d.Touch(now())
}

func prepareReplace[T any, PT docPtr[T]](doc *T) error {
	d := PT(doc)
	if d.StorageID().IsZero() {
		return errors.New("replace: document has no storage id")
	}
	d.Touch(now())
	return nil
}

// matches evaluates q against a decoded BSON document. Backends that cannot
// push the query down to a server use it.
func matches(doc bson.M, q models.Query) bool {
	if len(q.Any) > 0 {
		anyMatch := false
		for _, c := range q.Any {
			if clauseMatches(doc, c) {
				anyMatch = true
				break
			}
		}
		if !anyMatch {
			return false
		}
	}
	for _, c := range q.All {
		if !clauseMatches(doc, c) {
			return false
		}
	}
	for _, c := range q.Not {
		if clauseMatches(doc, c) {
			return false
		}
	}
	return true
}

func clauseMatches(doc bson.M, c models.Clause) bool {
	v, ok := doc[c.Field]
	if !ok {
		return false
	}
	if c.Native {
		id, ok := v.(primitive.ObjectID)
		return ok && id.Hex() == c.Value
	}
	s, ok := v.(string)
	return ok && s == c.Value
}

// decodeInto unmarshals BSON bytes into a fresh document.
func decodeInto[T any](raw []byte) (*T, error) {
	doc := new(T)
	if err := bson.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
