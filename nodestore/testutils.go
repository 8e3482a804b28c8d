package nodestore

import (
	"cmp"
	"sync/atomic"
	"testing"

	"github.com/wkalt/betree/codec"
	"github.com/wkalt/betree/storage"
)

// NewTestStore returns a Store backed by an in-memory storage.MemStore,
// wired with a simple monotone id allocator, for use by this package's
// tests.
func NewTestStore[K cmp.Ordered, V any](
	t *testing.T,
	cfg *Config[K, V],
	kc codec.Codec[K],
	vc codec.Codec[V],
) *Store[K, V] {
	t.Helper()
	store := NewStore[K, V](storage.NewMemStore(), 1<<20, cfg, kc, vc, "test")
	var next uint64
	store.SetIDAllocator(func() NodeID {
		return NodeID(atomic.AddUint64(&next, 1))
	})
	return store
}

// IntCombiner returns a Combiner that sums int values, for tests that don't
// care about combiner semantics beyond "Update folds predictably".
func IntCombiner() Combiner[int] {
	return Combiner[int]{
		Zero:    0,
		Combine: func(existing, next int) int { return existing + next },
	}
}

// DefaultTestConfig returns small, deterministic tunables suitable for
// exercising split/flush/adopt without needing thousands of keys.
func DefaultTestConfig() *Config[int, int] {
	return &Config[int, int]{
		MaxNodeSize:         64,
		MinNodeSize:         8,
		MinFlushSize:        4,
		IsDynamic:           false,
		StartingEpsilon:     0.5,
		TunableEpsilonLevel: 1,
		OpsBeforeUpdate:     16,
		WindowSize:          32,
		Combiner:            IntCombiner(),
	}
}
