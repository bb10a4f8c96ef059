package catalog

import (
	"slices"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The helpers below report whether they changed their input so link writes
// can skip no-op replaces. Each is idempotent.

func addCategory(categories []string, c string) ([]string, bool) {
	if c == "" || slices.Contains(categories, c) {
		return categories, false
	}
	return append(categories, c), true
}

func removeCategory(categories []string, c string) ([]string, bool) {
	if !slices.Contains(categories, c) {
		return categories, false
	}
	return slices.DeleteFunc(categories, func(s string) bool { return s == c }), true
}

func addItemID(items []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, bool) {
	if slices.Contains(items, id) {
		return items, false
	}
	return append(items, id), true
}

func removeItemID(items []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, bool) {
	if !slices.Contains(items, id) {
		return items, false
	}
	return slices.DeleteFunc(items, func(o primitive.ObjectID) bool { return o == id }), true
}
