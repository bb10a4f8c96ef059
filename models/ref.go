package models

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefKind tags the representation held by a RestaurantRef.
type RefKind int

const (
	RefNone RefKind = iota
	RefNative
	RefLegacy
)

func (k RefKind) String() string {
	switch k {
	case RefNative:
		return "native"
	case RefLegacy:
		return "legacy"
	default:
		return "none"
	}
}

// RestaurantRef is an item's pointer to its parent restaurant: either a
// storage id or a raw legacy string. In the store it is persisted as an
// ObjectID or a plain string so both shapes stay queryable.
type RestaurantRef struct {
	Kind  RefKind
	ID    primitive.ObjectID
	Value string
}

func NativeRef(id primitive.ObjectID) RestaurantRef {
	if id.IsZero() {
		return RestaurantRef{}
	}
	return RestaurantRef{Kind: RefNative, ID: id}
}

func LegacyRef(value string) RestaurantRef {
	if value == "" {
		return RestaurantRef{}
	}
	return RestaurantRef{Kind: RefLegacy, Value: value}
}

// ParseRef reads a client-supplied reference. Strings shaped like a storage
// id become native references, anything else non-empty is kept as legacy.
func ParseRef(s string) RestaurantRef {
	if s == "" {
		return RestaurantRef{}
	}
	if id, err := primitive.ObjectIDFromHex(s); err == nil {
		return NativeRef(id)
	}
	return LegacyRef(s)
}

func (r RestaurantRef) IsZero() bool { return r.Kind == RefNone }

func (r RestaurantRef) String() string {
	switch r.Kind {
	case RefNative:
		return r.ID.Hex()
	case RefLegacy:
		return r.Value
	default:
		return ""
	}
}

func (r RestaurantRef) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch r.Kind {
	case RefNative:
		return bson.MarshalValue(r.ID)
	case RefLegacy:
		return bson.MarshalValue(r.Value)
	default:
		return bsontype.Null, nil, nil
	}
}

func (r *RestaurantRef) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.ObjectID:
		*r = NativeRef(raw.ObjectID())
	case bsontype.String:
		// Stored strings keep their legacy tag even when hex shaped; the
		// reconcile pass is what upgrades them.
		*r = LegacyRef(raw.StringValue())
	case bsontype.Null, bsontype.Undefined:
		*r = RestaurantRef{}
	default:
		return fmt.Errorf("restaurant reference: unsupported bson type %s", t)
	}
	return nil
}

func (r RestaurantRef) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(r.String())
}

func (r *RestaurantRef) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = RestaurantRef{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("restaurant reference: %w", err)
	}
	*r = ParseRef(s)
	return nil
}
