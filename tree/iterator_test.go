package tree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, it *Iterator[int, int]) ([]int, []int) {
	t.Helper()
	var keys, vals []int
	for {
		k, v, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		keys = append(keys, k)
		vals = append(vals, v)
	}
	return keys, vals
}

func TestIterateEmptyTreeYieldsNothing(t *testing.T) {
	tr := newTestTree()
	it, err := tr.Iterate(context.Background(), nil, nil)
	require.NoError(t, err)
	keys, _ := drain(t, it)
	require.Empty(t, keys)
}

func TestIterateUnboundedYieldsAllKeysInOrder(t *testing.T) {
	ctx := context.Background()
	tr := newTestTree(WithMaxNodeSize[int, int](16), WithMinFlushSize[int, int](2))
	const n = 300
	for i := n - 1; i >= 0; i-- {
		require.NoError(t, tr.Insert(ctx, i, i*10))
	}

	it, err := tr.Iterate(ctx, nil, nil)
	require.NoError(t, err)
	keys, vals := drain(t, it)
	require.Len(t, keys, n)
	for i := 0; i < n; i++ {
		require.Equal(t, i, keys[i])
		require.Equal(t, i*10, vals[i])
	}
}

func TestIterateBoundedRangeIsInclusiveOnBothEnds(t *testing.T) {
	ctx := context.Background()
	tr := newTestTree(WithMaxNodeSize[int, int](16), WithMinFlushSize[int, int](2))
	for i := 0; i < 1000; i += 100 {
		require.NoError(t, tr.Insert(ctx, i, i))
	}

	lo, hi := 500, 700
	it, err := tr.Iterate(ctx, &lo, &hi)
	require.NoError(t, err)
	keys, _ := drain(t, it)
	require.Equal(t, []int{500, 600, 700}, keys)
}

func TestIterateSkipsDeletedKeys(t *testing.T) {
	ctx := context.Background()
	tr := newTestTree()
	require.NoError(t, tr.Insert(ctx, 1, 10))
	require.NoError(t, tr.Insert(ctx, 2, 20))
	require.NoError(t, tr.Insert(ctx, 3, 30))
	require.NoError(t, tr.Erase(ctx, 2))

	it, err := tr.Iterate(ctx, nil, nil)
	require.NoError(t, err)
	keys, vals := drain(t, it)
	require.Equal(t, []int{1, 3}, keys)
	require.Equal(t, []int{10, 30}, vals)
}

func TestIterateFoldsUpdatesLikeQuery(t *testing.T) {
	ctx := context.Background()
	tr := newTestTree()
	require.NoError(t, tr.Insert(ctx, 1, 100))
	require.NoError(t, tr.Update(ctx, 1, 1))
	require.NoError(t, tr.Update(ctx, 1, 1))
	require.NoError(t, tr.Update(ctx, 1, 1))

	it, err := tr.Iterate(ctx, nil, nil)
	require.NoError(t, err)
	keys, vals := drain(t, it)
	require.Equal(t, []int{1}, keys)
	require.Equal(t, []int{103}, vals)
}

func TestIterateLowerBoundExcludesKeysBelow(t *testing.T) {
	ctx := context.Background()
	tr := newTestTree()
	for i := 0; i < 5; i++ {
		require.NoError(t, tr.Insert(ctx, i, i))
	}
	lo := 2
	it, err := tr.Iterate(ctx, &lo, nil)
	require.NoError(t, err)
	keys, _ := drain(t, it)
	require.Equal(t, []int{2, 3, 4}, keys)
}

func TestIterateClosedTwiceIsSafe(t *testing.T) {
	ctx := context.Background()
	tr := newTestTree()
	require.NoError(t, tr.Insert(ctx, 1, 1))
	it, err := tr.Iterate(ctx, nil, nil)
	require.NoError(t, err)
	it.Close()
	it.Close()
	_, _, ok, err := it.Next()
	require.NoError(t, err)
	require.False(t, ok)
}
