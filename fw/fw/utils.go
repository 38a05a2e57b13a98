package fw

import (
	"slices"

	"golang.org/x/exp/constraints"
)

// sortedKeys returns the keys of a map in ascending order.
func sortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
