// Package omap implements a small ordered map over a sorted slice.
//
// The B^ε node engine needs pivot and buffer maps that preserve key order
// (the spec's "ordered mapping" language) and support range operations like
// lower-bound and contiguous-range deletion. A hash map can't do that; a
// sorted slice with binary search is the simplest structure that can, and is
// cheap enough for the node sizes this tree targets (tens to low thousands of
// entries per node).
//
// Ordering is supplied as a less-than function rather than requiring K to
// satisfy cmp.Ordered, because one of this tree's two map keys (MessageKey)
// is a composite struct with no native "<" operator.
package omap

import "sort"

// Map is an ordered map keyed by K, ordered by the less function supplied to
// New.
type Map[K any, V any] struct {
	less func(a, b K) bool
	keys []K
	vals []V
}

// New returns an empty ordered map ordered by less.
func New[K any, V any](less func(a, b K) bool) *Map[K, V] {
	return &Map[K, V]{less: less}
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return len(m.keys)
}

func (m *Map[K, V]) equal(a, b K) bool {
	return !m.less(a, b) && !m.less(b, a)
}

func (m *Map[K, V]) search(k K) int {
	return sort.Search(len(m.keys), func(i int) bool { return !m.less(m.keys[i], k) })
}

// Get returns the value for k and whether it was present.
func (m *Map[K, V]) Get(k K) (V, bool) {
	i := m.search(k)
	if i < len(m.keys) && m.equal(m.keys[i], k) {
		return m.vals[i], true
	}
	var zero V
	return zero, false
}

// Set inserts or overwrites the value for k.
func (m *Map[K, V]) Set(k K, v V) {
	i := m.search(k)
	if i < len(m.keys) && m.equal(m.keys[i], k) {
		m.vals[i] = v
		return
	}
	m.keys = append(m.keys, k)
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = k
	m.vals = append(m.vals, v)
	copy(m.vals[i+1:], m.vals[i:])
	m.vals[i] = v
}

// Delete removes k from the map if present.
func (m *Map[K, V]) Delete(k K) {
	i := m.search(k)
	if i < len(m.keys) && m.equal(m.keys[i], k) {
		m.keys = append(m.keys[:i], m.keys[i+1:]...)
		m.vals = append(m.vals[:i], m.vals[i+1:]...)
	}
}

// DeleteRange removes all keys in [from, to).
func (m *Map[K, V]) DeleteRange(from, to K) {
	i := m.LowerBoundIndex(from)
	j := m.LowerBoundIndex(to)
	if i >= j {
		return
	}
	m.keys = append(m.keys[:i], m.keys[j:]...)
	m.vals = append(m.vals[:i], m.vals[j:]...)
}

// DeleteIndexRange removes the entries at indices [i, j).
func (m *Map[K, V]) DeleteIndexRange(i, j int) {
	if i >= j {
		return
	}
	m.keys = append(m.keys[:i], m.keys[j:]...)
	m.vals = append(m.vals[:i], m.vals[j:]...)
}

// LowerBoundIndex returns the index of the first key >= k.
func (m *Map[K, V]) LowerBoundIndex(k K) int {
	return m.search(k)
}

// LowerBound returns the first key/value with key >= k.
func (m *Map[K, V]) LowerBound(k K) (K, V, bool) {
	i := m.search(k)
	if i < len(m.keys) {
		return m.keys[i], m.vals[i], true
	}
	var zk K
	var zv V
	return zk, zv, false
}

// First returns the smallest key/value pair in the map.
func (m *Map[K, V]) First() (K, V, bool) {
	if len(m.keys) == 0 {
		var zk K
		var zv V
		return zk, zv, false
	}
	return m.keys[0], m.vals[0], true
}

// Last returns the largest key/value pair in the map.
func (m *Map[K, V]) Last() (K, V, bool) {
	if len(m.keys) == 0 {
		var zk K
		var zv V
		return zk, zv, false
	}
	n := len(m.keys) - 1
	return m.keys[n], m.vals[n], true
}

// Keys returns the keys in order. The returned slice must not be mutated.
func (m *Map[K, V]) Keys() []K {
	return m.keys
}

// At returns the key/value pair at index i, in key order.
func (m *Map[K, V]) At(i int) (K, V) {
	return m.keys[i], m.vals[i]
}

// Range calls f for every entry in key order. f returning false stops
// iteration.
func (m *Map[K, V]) Range(f func(k K, v V) bool) {
	for i, k := range m.keys {
		if !f(k, m.vals[i]) {
			return
		}
	}
}

// Clone returns a shallow copy of the map.
func (m *Map[K, V]) Clone() *Map[K, V] {
	clone := &Map[K, V]{
		less: m.less,
		keys: make([]K, len(m.keys)),
		vals: make([]V, len(m.vals)),
	}
	copy(clone.keys, m.keys)
	copy(clone.vals, m.vals)
	return clone
}

// Clear empties the map in place.
func (m *Map[K, V]) Clear() {
	m.keys = nil
	m.vals = nil
}

// Merge inserts every entry of other into m, overwriting on key collision.
func (m *Map[K, V]) Merge(other *Map[K, V]) {
	other.Range(func(k K, v V) bool {
		m.Set(k, v)
		return true
	})
}
