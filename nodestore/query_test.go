package nodestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/betree/codec"
	"github.com/wkalt/betree/message"
)

func TestQueryLeafFound(t *testing.T) {
	ctx := context.Background()
	cfg := flushTestConfig(64, 2)
	store := NewTestStore[int, int](t, cfg, codec.JSONCodec[int]{}, codec.JSONCodec[int]{})
	n := NewNode[int, int](store.NewNodeID(), 0, 0.5, cfg)
	n.elements.Set(message.NewMessageKey(1, 1), message.NewInsert(42))
	store.Stage(n).Release()

	v, err := n.Query(ctx, store, 1)
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestQueryLeafNotFound(t *testing.T) {
	ctx := context.Background()
	cfg := flushTestConfig(64, 2)
	store := NewTestStore[int, int](t, cfg, codec.JSONCodec[int]{}, codec.JSONCodec[int]{})
	n := NewNode[int, int](store.NewNodeID(), 0, 0.5, cfg)
	store.Stage(n).Release()

	_, err := n.Query(ctx, store, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestQueryNonLeafDelegatesWhenNoBufferedMessage(t *testing.T) {
	ctx := context.Background()
	cfg := flushTestConfig(64, 2)
	store := NewTestStore[int, int](t, cfg, codec.JSONCodec[int]{}, codec.JSONCodec[int]{})

	child := NewNode[int, int](store.NewNodeID(), 1, 0.5, cfg)
	child.elements.Set(message.NewMessageKey(5, 1), message.NewInsert(500))
	store.Stage(child).Release()

	parent := NewNode[int, int](store.NewNodeID(), 0, 0.5, cfg)
	parent.pivots.Set(0, ChildInfo{ChildID: child.id})
	store.Stage(parent).Release()

	v, err := parent.Query(ctx, store, 5)
	require.NoError(t, err)
	require.Equal(t, 500, v)
}

func TestQueryNonLeafUsesBufferedInsert(t *testing.T) {
	ctx := context.Background()
	cfg := flushTestConfig(64, 2)
	store := NewTestStore[int, int](t, cfg, codec.JSONCodec[int]{}, codec.JSONCodec[int]{})

	child := NewNode[int, int](store.NewNodeID(), 1, 0.5, cfg)
	store.Stage(child).Release()

	parent := NewNode[int, int](store.NewNodeID(), 0, 0.5, cfg)
	parent.pivots.Set(0, ChildInfo{ChildID: child.id})
	parent.apply(message.NewMessageKey(5, 1), message.NewInsert(10), cfg.Combiner)
	store.Stage(parent).Release()

	v, err := parent.Query(ctx, store, 5)
	require.NoError(t, err)
	require.Equal(t, 10, v)
}

func TestQueryNonLeafBufferedUpdateSeedsFromChild(t *testing.T) {
	ctx := context.Background()
	cfg := flushTestConfig(64, 2)
	store := NewTestStore[int, int](t, cfg, codec.JSONCodec[int]{}, codec.JSONCodec[int]{})

	child := NewNode[int, int](store.NewNodeID(), 1, 0.5, cfg)
	child.elements.Set(message.NewMessageKey(5, 1), message.NewInsert(100))
	store.Stage(child).Release()

	parent := NewNode[int, int](store.NewNodeID(), 0, 0.5, cfg)
	parent.pivots.Set(0, ChildInfo{ChildID: child.id})
	parent.apply(message.NewMessageKey(5, 2), message.NewUpdate(5), cfg.Combiner)
	store.Stage(parent).Release()

	v, err := parent.Query(ctx, store, 5)
	require.NoError(t, err)
	require.Equal(t, 105, v)
}

func TestQueryNonLeafBufferedDeleteWithoutFollowupNotFound(t *testing.T) {
	ctx := context.Background()
	cfg := flushTestConfig(64, 2)
	store := NewTestStore[int, int](t, cfg, codec.JSONCodec[int]{}, codec.JSONCodec[int]{})

	child := NewNode[int, int](store.NewNodeID(), 1, 0.5, cfg)
	child.elements.Set(message.NewMessageKey(5, 1), message.NewInsert(100))
	store.Stage(child).Release()

	parent := NewNode[int, int](store.NewNodeID(), 0, 0.5, cfg)
	parent.pivots.Set(0, ChildInfo{ChildID: child.id})
	parent.apply(message.NewMessageKey(5, 2), message.NewDelete[int](), cfg.Combiner)
	store.Stage(parent).Release()

	_, err := parent.Query(ctx, store, 5)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestQueryNonLeafBufferedDeleteThenUpdateFoldsFromZero(t *testing.T) {
	ctx := context.Background()
	cfg := flushTestConfig(64, 2)
	store := NewTestStore[int, int](t, cfg, codec.JSONCodec[int]{}, codec.JSONCodec[int]{})

	child := NewNode[int, int](store.NewNodeID(), 1, 0.5, cfg)
	child.elements.Set(message.NewMessageKey(5, 1), message.NewInsert(100))
	store.Stage(child).Release()

	parent := NewNode[int, int](store.NewNodeID(), 0, 0.5, cfg)
	parent.pivots.Set(0, ChildInfo{ChildID: child.id})
	parent.apply(message.NewMessageKey(5, 2), message.NewDelete[int](), cfg.Combiner)
	parent.apply(message.NewMessageKey(5, 3), message.NewUpdate(7), cfg.Combiner)
	store.Stage(parent).Release()

	v, err := parent.Query(ctx, store, 5)
	require.NoError(t, err)
	require.Equal(t, 7, v)
}
