package utils

// BiMap is an immutable bidirectional map supporting lookups in both
// directions. It is built once from an input map and never mutated, so it is
// safe for concurrent use without locking.
type BiMap[K comparable, V comparable] struct {
	forward map[K]V
	reverse map[V]K
}

// NewBiMap builds a BiMap from input, copying it defensively. If input
// contains duplicate values, the reverse mapping keeps the last key seen.
func NewBiMap[K comparable, V comparable](input map[K]V) *BiMap[K, V] {
	forward := make(map[K]V, len(input))
	reverse := make(map[V]K, len(input))
	for k, v := range input {
		forward[k] = v
		reverse[v] = k
	}
	return &BiMap[K, V]{forward: forward, reverse: reverse}
}

// Lookup finds the value mapped to key.
func (m *BiMap[K, V]) Lookup(key K) (V, bool) {
	value, ok := m.forward[key]
	return value, ok
}

// DirectLookup finds the value mapped to key, returning the zero value for V
// when the key is absent.
func (m *BiMap[K, V]) DirectLookup(key K) V {
	return m.forward[key]
}

// RLookup finds the key mapped to value.
func (m *BiMap[K, V]) RLookup(value V) (K, bool) {
	key, ok := m.reverse[value]
	return key, ok
}
