// Package resolver classifies identifiers of unknown provenance and turns
// them into store queries.
//
// Three identifier spaces meet at the API: storage ids assigned by the
// database, small numeric legacy ids baked into the bundled fixtures, and
// anything else a client happens to send. Classification never fails; a
// plan may simply match nothing, which callers report as not found.
package resolver

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/models"
)

// Kind is the identifier space an input belongs to.
type Kind int

const (
	Unresolvable Kind = iota
	Native
	Legacy
)

func (k Kind) String() string {
	switch k {
	case Native:
		return "native"
	case Legacy:
		return "legacy"
	default:
		return "unresolvable"
	}
}

// NameTable maps legacy ids to the restaurant names they were bundled under.
type NameTable interface {
	NameFor(legacyID string) (string, bool)
}

// Plan is the classification of one identifier together with the query
// that locates it.
type Plan struct {
	ID    string
	Kind  Kind
	Query models.Query
}

// Resolver builds lookup plans. It is safe for concurrent use.
type Resolver struct {
	names NameTable
}

// New returns a resolver that maps legacy ids to names through names.
func New(names NameTable) *Resolver {
	return &Resolver{names: names}
}

// ClassifyKind reports which identifier space id belongs to: 24 hex digits
// are storage ids, strings of only ASCII digits are legacy ids.
func ClassifyKind(id string) Kind {
	if _, err := primitive.ObjectIDFromHex(id); err == nil {
		return Native
	}
	if isDigits(id) {
		return Legacy
	}
	return Unresolvable
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Classify builds the restaurant lookup plan for id.
func (r *Resolver) Classify(id string) Plan {
	kind := ClassifyKind(id)
	p := Plan{ID: id, Kind: kind}
	switch kind {
	case Native:
		p.Query = models.AnyOf(models.EqID(models.FieldStorageID, id))
	case Legacy:
		clauses := []models.Clause{
			models.Eq(models.FieldLegacyID, id),
			models.Eq(models.FieldNumericID, id),
		}
		if name, ok := r.lookupName(id); ok {
			clauses = append(clauses, models.Eq(models.FieldName, name))
		}
		p.Query = models.AnyOf(clauses...)
	default:
		p.Query = models.AnyOf(models.Eq(models.FieldLegacyID, id))
	}
	return p
}

// ClassifyItem builds the item lookup plan for id. Items carry no numeric
// id or name table, so everything that is not a storage id is matched
// against legacyId.
func (r *Resolver) ClassifyItem(id string) Plan {
	kind := ClassifyKind(id)
	p := Plan{ID: id, Kind: kind}
	if kind == Native {
		p.Query = models.AnyOf(models.EqID(models.FieldStorageID, id))
	} else {
		p.Query = models.AnyOf(models.Eq(models.FieldLegacyID, id))
	}
	return p
}

// ItemsByRestaurant builds the query for items belonging to the restaurant
// requested as requestedID. restaurant is the record that id resolved to,
// or nil when none was found. The item reference field is searched under
// every representation it may hold.
func (r *Resolver) ItemsByRestaurant(requestedID string, restaurant *models.Restaurant) models.Query {
	var clauses []models.Clause
	if ClassifyKind(requestedID) == Native {
		clauses = append(clauses, models.EqID(models.FieldRestaurant, requestedID))
	} else if requestedID != "" {
		clauses = append(clauses, models.Eq(models.FieldRestaurant, requestedID))
	}
	if restaurant != nil {
		clauses = appendUnique(clauses, RefClauses(restaurant)...)
	}
	return models.AnyOf(clauses...)
}

// RefClauses matches item references that point at restaurant: its storage
// id and any legacy or numeric id it carries.
func RefClauses(restaurant *models.Restaurant) []models.Clause {
	var clauses []models.Clause
	if !restaurant.ID.IsZero() {
		clauses = append(clauses, models.EqID(models.FieldRestaurant, restaurant.ID.Hex()))
	}
	for _, legacy := range []string{restaurant.LegacyID, restaurant.NumericID} {
		if legacy != "" {
			clauses = appendUnique(clauses, models.Eq(models.FieldRestaurant, legacy))
		}
	}
	return clauses
}

func appendUnique(dst []models.Clause, clauses ...models.Clause) []models.Clause {
	for _, c := range clauses {
		dup := false
		for _, existing := range dst {
			if existing == c {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, c)
		}
	}
	return dst
}

func (r *Resolver) lookupName(id string) (string, bool) {
	if r.names == nil {
		return "", false
	}
	return r.names.NameFor(id)
}
