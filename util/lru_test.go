package util_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/betree/util"
)

func TestLRUBasic(t *testing.T) {
	lru := util.NewLRU[string, int](100)
	lru.Put("a", 1, 10)
	lru.Put("b", 2, 10)

	v, ok := lru.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = lru.Get("missing")
	require.False(t, ok)
}

func TestLRUEvictsBySize(t *testing.T) {
	lru := util.NewLRU[string, int](20)
	lru.Put("a", 1, 10)
	lru.Put("b", 2, 10)
	// cache is now full at 20/20; inserting c should evict the LRU entry (a)
	lru.Put("c", 3, 10)

	_, ok := lru.Get("a")
	require.False(t, ok, "a should have been evicted")

	_, ok = lru.Get("b")
	require.True(t, ok)

	_, ok = lru.Get("c")
	require.True(t, ok)
}

func TestLRUGetRefreshesRecency(t *testing.T) {
	lru := util.NewLRU[string, int](20)
	lru.Put("a", 1, 10)
	lru.Put("b", 2, 10)

	// touching a makes b the least-recently-used entry
	_, _ = lru.Get("a")
	lru.Put("c", 3, 10)

	_, ok := lru.Get("b")
	require.False(t, ok, "b should have been evicted instead of a")

	_, ok = lru.Get("a")
	require.True(t, ok)
}

func TestLRUUpdateExistingKeyAdjustsSize(t *testing.T) {
	lru := util.NewLRU[string, int](20)
	lru.Put("a", 1, 15)
	lru.Put("a", 2, 5)

	v, ok := lru.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, v)

	// total accounted size should now be 5, so a second 15-byte entry fits
	lru.Put("b", 3, 15)
	_, ok = lru.Get("a")
	require.True(t, ok, "a should not have been evicted after shrinking")
}

func TestLRUDelete(t *testing.T) {
	lru := util.NewLRU[string, int](100)
	lru.Put("a", 1, 10)
	lru.Delete("a")

	_, ok := lru.Get("a")
	require.False(t, ok)
}

func TestLRUOnEvict(t *testing.T) {
	lru := util.NewLRU[string, int](20)
	var evicted []string
	lru.OnEvict(func(k string, v int) {
		evicted = append(evicted, k)
	})
	lru.Put("a", 1, 10)
	lru.Put("b", 2, 10)
	lru.Put("c", 3, 10)

	require.Equal(t, []string{"a"}, evicted)
}

func TestLRUReset(t *testing.T) {
	lru := util.NewLRU[string, int](100)
	lru.Put("a", 1, 10)
	lru.Put("b", 2, 10)
	lru.Reset()

	_, ok := lru.Get("a")
	require.False(t, ok)
	_, ok = lru.Get("b")
	require.False(t, ok)
}
