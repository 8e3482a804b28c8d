package nodestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/betree/codec"
)

func TestPropagateEpsilonUpdatesDescendants(t *testing.T) {
	ctx := context.Background()
	cfg := flushTestConfig(64, 2)
	store := NewTestStore[int, int](t, cfg, codec.JSONCodec[int]{}, codec.JSONCodec[int]{})

	child := NewNode[int, int](store.NewNodeID(), 1, 0.5, cfg)
	store.Stage(child).Release()

	root := NewNode[int, int](store.NewNodeID(), 0, 0.5, cfg)
	root.pivots.Set(0, ChildInfo{ChildID: child.id})
	root.epsilon = 0.9
	store.Stage(root).Release()

	require.NoError(t, store.propagateEpsilon(ctx, root))

	pinned, err := store.Acquire(ctx, child.id)
	require.NoError(t, err)
	require.Equal(t, float32(0.9), pinned.Node.Epsilon())
	pinned.Release()
}

func TestFlagAdoptionMarksRootAndDescendants(t *testing.T) {
	ctx := context.Background()
	cfg := flushTestConfig(64, 2)
	cfg.TunableEpsilonLevel = 0
	store := NewTestStore[int, int](t, cfg, codec.JSONCodec[int]{}, codec.JSONCodec[int]{})

	child := NewNode[int, int](store.NewNodeID(), 1, 0.5, cfg)
	store.Stage(child).Release()

	root := NewNode[int, int](store.NewNodeID(), 0, 0.5, cfg)
	root.pivots.Set(0, ChildInfo{ChildID: child.id})
	store.Stage(root).Release()

	require.NoError(t, store.flagAdoption(ctx, root))
	require.True(t, root.AdoptionFlagged())

	pinned, err := store.Acquire(ctx, child.id)
	require.NoError(t, err)
	require.True(t, pinned.Node.AdoptionFlagged())
	pinned.Release()
}
