package models

import "strings"

// Document field names usable in query clauses.
const (
	FieldStorageID  = "_id"
	FieldLegacyID   = "legacyId"
	FieldNumericID  = "numericId"
	FieldName       = "name"
	FieldRestaurant = "restaurant"
	FieldCategory   = "category"
	FieldVendor     = "vendor"
	FieldEmail      = "email"
)

// Clause is an equality test on one document field. Native marks Value as
// the hex form of a storage id, which the store compares against ObjectIDs
// rather than strings.
type Clause struct {
	Field  string
	Value  string
	Native bool
}

// Eq matches documents whose string field equals value.
func Eq(field, value string) Clause {
	return Clause{Field: field, Value: value}
}

// EqID matches documents whose ObjectID field has the given hex form.
// Storage ids render in lowercase, so hex is folded before comparing.
func EqID(field, hex string) Clause {
	return Clause{Field: field, Value: strings.ToLower(hex), Native: true}
}

// Query combines clauses: at least one of Any (when non-empty), every one of
// All, and none of Not. The zero Query matches every document.
type Query struct {
	Any []Clause
	All []Clause
	Not []Clause
}

// AnyOf matches documents satisfying at least one clause.
func AnyOf(clauses ...Clause) Query {
	return Query{Any: clauses}
}

// AllOf matches documents satisfying every clause.
func AllOf(clauses ...Clause) Query {
	return Query{All: clauses}
}

// And returns a copy of q that additionally requires every clause.
func (q Query) And(clauses ...Clause) Query {
	out := q.clone()
	out.All = append(out.All, clauses...)
	return out
}

// Excluding returns a copy of q that rejects documents matching any clause.
func (q Query) Excluding(clauses ...Clause) Query {
	out := q.clone()
	out.Not = append(out.Not, clauses...)
	return out
}

func (q Query) clone() Query {
	return Query{
		Any: append([]Clause(nil), q.Any...),
		All: append([]Clause(nil), q.All...),
		Not: append([]Clause(nil), q.Not...),
	}
}
