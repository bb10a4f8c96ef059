package fixtures

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultNameTable(t *testing.T) {
	table := Default()
	require.Equal(t, 9, table.Len())

	want := map[string]string{
		"1": "Paradise Biryani",
		"2": "Shah Ghouse",
		"3": "Mehfil Restaurant",
		"4": "Bawarchi",
		"5": "Pista House",
		"6": "Kritunga Restaurant",
		"7": "Cream Stone",
		"8": "Cafe Bahar",
		"9": "Hotel Shadab",
	}
	for id, name := range want {
		got, ok := table.NameFor(id)
		require.True(t, ok, id)
		assert.Equal(t, name, got)

		back, ok := table.LegacyIDFor(name)
		require.True(t, ok, name)
		assert.Equal(t, id, back)
	}

	_, ok := table.NameFor("10")
	assert.False(t, ok)
}

func TestRestaurantReturnsCopy(t *testing.T) {
	table := Default()
	r, ok := table.Restaurant("1")
	require.True(t, ok)
	require.NotEmpty(t, r.Items)

	r.Categories[0] = "mutated"
	r.Items[0].Name = "mutated"
	r.SustainabilityMetrics["localSourcing"] = false

	again, _ := table.Restaurant("1")
	assert.Equal(t, "Biryani", again.Categories[0])
	assert.NotEqual(t, "mutated", again.Items[0].Name)
	assert.True(t, again.SustainabilityMetrics["localSourcing"])
}

func TestRestaurantsKeepsOrder(t *testing.T) {
	list := Default().Restaurants()
	require.Len(t, list, 9)
	for i, r := range list {
		assert.Equal(t, string(rune('1'+i)), r.LegacyID)
	}
}

func TestLoadRejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"non numeric id", "restaurants:\n  - legacyId: abc\n    name: X\n"},
		{"missing name", "restaurants:\n  - legacyId: \"1\"\n"},
		{"duplicate id", "restaurants:\n  - legacyId: \"1\"\n    name: A\n  - legacyId: \"1\"\n    name: B\n"},
		{"unknown field", "restaurants:\n  - legacyId: \"1\"\n    name: A\n    rating: 5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}
