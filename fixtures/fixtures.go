// Package fixtures holds the sample dataset bundled with the service: nine
// restaurants keyed by small numeric legacy ids, with their menus.
//
// The dataset is read-only process state. It backs degraded (store-less)
// serving, the seed command, client-side overlays, and the legacy id to
// name table used when resolving identifiers.
package fixtures

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"maps"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var bundled []byte

// Item is a menu entry of a fixture restaurant.
type Item struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
	Image       string  `yaml:"image"`
	Category    string  `yaml:"category"`
}

// Restaurant is a fixture restaurant.
type Restaurant struct {
	LegacyID              string          `yaml:"legacyId"`
	Name                  string          `yaml:"name"`
	Description           string          `yaml:"description"`
	Image                 string          `yaml:"image"`
	Area                  string          `yaml:"area"`
	Offer                 string          `yaml:"offer"`
	Categories            []string        `yaml:"categories"`
	SustainabilityMetrics map[string]bool `yaml:"sustainabilityMetrics"`
	Items                 []Item          `yaml:"items"`
}

func (r Restaurant) clone() Restaurant {
	out := r
	out.Categories = append([]string(nil), r.Categories...)
	out.Items = append([]Item(nil), r.Items...)
	out.SustainabilityMetrics = maps.Clone(r.SustainabilityMetrics)
	return out
}

// Table indexes fixture restaurants by legacy id and by name.
type Table struct {
	order  []string
	byID   map[string]Restaurant
	byName map[string]string
}

type document struct {
	Restaurants []Restaurant `yaml:"restaurants"`
}

// Load parses a YAML fixture document.
func Load(r io.Reader) (*Table, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return newTable(doc.Restaurants)
}

// LoadFile parses the fixture document at path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()
	return Load(f)
}

var defaultTable = sync.OnceValue(func() *Table {
	t, err := Load(bytes.NewReader(bundled))
	if err != nil {
		panic(fmt.Sprintf("bundled fixtures are invalid: %v", err))
	}
	return t
})

// Default returns the table built from the bundled dataset.
func Default() *Table {
	return defaultTable()
}

func newTable(restaurants []Restaurant) (*Table, error) {
	t := &Table{
		byID:   make(map[string]Restaurant, len(restaurants)),
		byName: make(map[string]string, len(restaurants)),
	}
	for _, r := range restaurants {
		if r.Name == "" {
			return nil, fmt.Errorf("fixture %q has no name", r.LegacyID)
		}
		if _, err := strconv.ParseUint(r.LegacyID, 10, 64); err != nil {
			return nil, fmt.Errorf("fixture %q: legacy id must be a non-negative integer", r.Name)
		}
		if _, dup := t.byID[r.LegacyID]; dup {
			return nil, fmt.Errorf("duplicate fixture legacy id %q", r.LegacyID)
		}
		t.order = append(t.order, r.LegacyID)
		t.byID[r.LegacyID] = r.clone()
		t.byName[r.Name] = r.LegacyID
	}
	return t, nil
}

// Restaurant returns a copy of the fixture with the given legacy id.
func (t *Table) Restaurant(legacyID string) (Restaurant, bool) {
	r, ok := t.byID[legacyID]
	if !ok {
		return Restaurant{}, false
	}
	return r.clone(), true
}

// Restaurants returns copies of every fixture in dataset order.
func (t *Table) Restaurants() []Restaurant {
	out := make([]Restaurant, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id].clone())
	}
	return out
}

// NameFor maps a legacy id to the restaurant name it was bundled under.
func (t *Table) NameFor(legacyID string) (string, bool) {
	r, ok := t.byID[legacyID]
	return r.Name, ok
}

// LegacyIDFor maps a restaurant name back to its legacy id.
func (t *Table) LegacyIDFor(name string) (string, bool) {
	id, ok := t.byName[name]
	return id, ok
}

func (t *Table) Len() int { return len(t.order) }
