// Package message defines the unit of mutation buffered and flushed through
// the tree: a Message tagged with an operation, keyed by a MessageKey.
package message

import (
	"cmp"
	"math"
)

/*
MessageKey pairs a user key with a timestamp so that multiple messages for
the same key can be ordered by arrival. Every write allocates a fresh
timestamp from a counter the Tree owns; timestamp 0 is reserved so that
RangeStart(key) sorts before every real message for that key, and
math.MaxUint64 is reserved so RangeEnd(key) sorts after all of them.
*/

////////////////////////////////////////////////////////////////////////////////

// MessageKey is a (key, timestamp) composite. Ordering is lexicographic:
// by Key, then by Timestamp.
type MessageKey[K cmp.Ordered] struct {
	Key       K
	Timestamp uint64
}

// NewMessageKey returns a MessageKey for key stamped with timestamp.
func NewMessageKey[K cmp.Ordered](key K, timestamp uint64) MessageKey[K] {
	return MessageKey[K]{Key: key, Timestamp: timestamp}
}

// RangeStart returns the MessageKey that sorts before every message for key.
func RangeStart[K cmp.Ordered](key K) MessageKey[K] {
	return MessageKey[K]{Key: key, Timestamp: 0}
}

// RangeEnd returns the MessageKey that sorts after every message for key.
func RangeEnd[K cmp.Ordered](key K) MessageKey[K] {
	return MessageKey[K]{Key: key, Timestamp: math.MaxUint64}
}

// Less reports whether mk sorts before other.
func (mk MessageKey[K]) Less(other MessageKey[K]) bool {
	if mk.Key != other.Key {
		return mk.Key < other.Key
	}
	return mk.Timestamp < other.Timestamp
}

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater than
// b, matching cmp.Compare semantics so MessageKey can key an omap.Map.
func Compare[K cmp.Ordered](a, b MessageKey[K]) int {
	if a.Key != b.Key {
		return cmp.Compare(a.Key, b.Key)
	}
	return cmp.Compare(a.Timestamp, b.Timestamp)
}
