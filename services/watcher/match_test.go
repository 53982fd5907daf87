package watcher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreMatches(t *testing.T) {
	testCases := []struct {
		wanted   string
		store    string
		expected bool
	}{
		{"aldi", "ALDI SÜD - Hauptstr. 1", true},
		{"corner bakery", "Corner Bakery", true},
		{"corner bakerey", "Corner Bakery", true},
		{"sushi", "Corner Bakery", false},
		{"", "Corner Bakery", false},
	}
	for _, test := range testCases {
		require.Equal(
			t, test.expected, storeMatches(test.wanted, test.store),
			"wanted=%q store=%q", test.wanted, test.store,
		)
	}
}

func TestMatchesAny(t *testing.T) {
	stores := []string{"aldi", "corner bakery"}
	require.True(t, matchesAny(stores, "Corner Bakery"))
	require.False(t, matchesAny(stores, "Sushi Palace"))
	require.False(t, matchesAny(nil, "Corner Bakery"))
}
