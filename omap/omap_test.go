package omap_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/betree/omap"
)

func intLess(a, b int) bool { return a < b }

func TestSetGet(t *testing.T) {
	m := omap.New[int, string](intLess)
	m.Set(3, "c")
	m.Set(1, "a")
	m.Set(2, "b")

	require.Equal(t, 3, m.Len())
	v, ok := m.Get(2)
	require.True(t, ok)
	require.Equal(t, "b", v)

	_, ok = m.Get(99)
	require.False(t, ok)

	require.Equal(t, []int{1, 2, 3}, m.Keys())
}

func TestSetOverwrites(t *testing.T) {
	m := omap.New[int, string](intLess)
	m.Set(1, "a")
	m.Set(1, "a-updated")

	require.Equal(t, 1, m.Len())
	v, _ := m.Get(1)
	require.Equal(t, "a-updated", v)
}

func TestDelete(t *testing.T) {
	m := omap.New[int, string](intLess)
	m.Set(1, "a")
	m.Set(2, "b")
	m.Delete(1)

	require.Equal(t, 1, m.Len())
	_, ok := m.Get(1)
	require.False(t, ok)

	// deleting an absent key is a no-op
	m.Delete(99)
	require.Equal(t, 1, m.Len())
}

func TestDeleteRange(t *testing.T) {
	m := omap.New[int, string](intLess)
	for i := 0; i < 10; i++ {
		m.Set(i, "v")
	}
	m.DeleteRange(3, 7)
	require.Equal(t, []int{0, 1, 2, 7, 8, 9}, m.Keys())
}

func TestDeleteIndexRange(t *testing.T) {
	m := omap.New[int, string](intLess)
	for i := 0; i < 10; i++ {
		m.Set(i, "v")
	}
	m.DeleteIndexRange(3, 7)
	require.Equal(t, []int{0, 1, 2, 7, 8, 9}, m.Keys())

	// i >= j is a no-op
	m.DeleteIndexRange(2, 2)
	require.Equal(t, 6, m.Len())
}

func TestLowerBound(t *testing.T) {
	m := omap.New[int, string](intLess)
	m.Set(10, "a")
	m.Set(20, "b")
	m.Set(30, "c")

	k, v, ok := m.LowerBound(15)
	require.True(t, ok)
	require.Equal(t, 20, k)
	require.Equal(t, "b", v)

	k, _, ok = m.LowerBound(20)
	require.True(t, ok)
	require.Equal(t, 20, k)

	_, _, ok = m.LowerBound(31)
	require.False(t, ok)
}

func TestFirstLast(t *testing.T) {
	m := omap.New[int, string](intLess)
	_, _, ok := m.First()
	require.False(t, ok)

	m.Set(5, "a")
	m.Set(1, "b")
	m.Set(9, "c")

	k, _, ok := m.First()
	require.True(t, ok)
	require.Equal(t, 1, k)

	k, _, ok = m.Last()
	require.True(t, ok)
	require.Equal(t, 9, k)
}

func TestRangeStopsEarly(t *testing.T) {
	m := omap.New[int, string](intLess)
	for i := 0; i < 5; i++ {
		m.Set(i, "v")
	}
	var seen []int
	m.Range(func(k int, v string) bool {
		seen = append(seen, k)
		return k < 2
	})
	require.Equal(t, []int{0, 1, 2}, seen)
}

func TestCloneIsIndependent(t *testing.T) {
	m := omap.New[int, string](intLess)
	m.Set(1, "a")
	clone := m.Clone()
	clone.Set(2, "b")

	require.Equal(t, 1, m.Len())
	require.Equal(t, 2, clone.Len())
}

func TestClear(t *testing.T) {
	m := omap.New[int, string](intLess)
	m.Set(1, "a")
	m.Clear()
	require.Equal(t, 0, m.Len())
}

func TestMerge(t *testing.T) {
	a := omap.New[int, string](intLess)
	a.Set(1, "a1")
	a.Set(2, "a2")

	b := omap.New[int, string](intLess)
	b.Set(2, "b2")
	b.Set(3, "b3")

	a.Merge(b)
	require.Equal(t, []int{1, 2, 3}, a.Keys())
	v, _ := a.Get(2)
	require.Equal(t, "b2", v, "merge should overwrite on collision")
}

func TestAt(t *testing.T) {
	m := omap.New[int, string](intLess)
	m.Set(3, "c")
	m.Set(1, "a")
	k, v := m.At(0)
	require.Equal(t, 1, k)
	require.Equal(t, "a", v)
}
