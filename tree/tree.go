// Package tree owns the root of a B^ε tree: node id and timestamp
// allocation, the public Insert/Update/Erase/Query/Iterate surface, and promoting a new
// root when the current one splits.
package tree

import (
	"cmp"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/wkalt/betree/codec"
	"github.com/wkalt/betree/message"
	"github.com/wkalt/betree/nodestore"
	"github.com/wkalt/betree/omap"
	"github.com/wkalt/betree/storage"
	"github.com/wkalt/betree/util/log"
)

/*
Tree is deliberately thin: everything that makes the B^ε tree work lives in
nodestore.Node and nodestore.Store. This package's job is the handful of
things that only make sense once, tree-wide, rather than once per node -
minting node ids, dispensing write timestamps, and knowing which node is
currently the root. A root only exists once the first write lands: an empty
Tree has nowhere to route a query, so Query on a Tree that has never been
written to returns EmptyTreeError rather than ErrNotFound (which would
incorrectly suggest a key was looked for and missed), and Iterate returns an
iterator that yields nothing.

Root promotion mirrors §4.9: upsert flushes into the current root; if that
flush returns a non-empty sibling map, the root has been replaced by
several new nodes one level down, and a fresh root at level 0 is created to
hold them as its own pivots.
*/

////////////////////////////////////////////////////////////////////////////////

// Tree is a B^ε key-value index over K -> V, backed by a paging store.
type Tree[K cmp.Ordered, V any] struct {
	store    *nodestore.Store[K, V]
	cfg      *config[K, V]
	storeCfg *nodestore.Config[K, V]

	timestamps TimestampAllocator
	nextNodeID uint64

	mtx     sync.Mutex
	rootID  nodestore.NodeID
	hasRoot bool
}

// New constructs a Tree backed by provider, using kc/vc to serialize keys
// and values. Every tunable in the external interface has a corresponding
// With option; unset ones take the defaults from defaultConfig.
func New[K cmp.Ordered, V any](
	provider storage.Provider,
	combiner nodestore.Combiner[V],
	kc codec.Codec[K],
	vc codec.Codec[V],
	opts ...Option[K, V],
) *Tree[K, V] {
	cfg := defaultConfig[K, V](combiner)
	for _, opt := range opts {
		opt(cfg)
	}

	storeCfg := &nodestore.Config[K, V]{
		MaxNodeSize:         cfg.maxNodeSize,
		MinNodeSize:         cfg.minNodeSize,
		MinFlushSize:        cfg.minFlushSize,
		IsDynamic:           cfg.isDynamic,
		StartingEpsilon:     cfg.startingEpsilon,
		TunableEpsilonLevel: cfg.tunableEpsilonLevel,
		OpsBeforeUpdate:     cfg.opsBeforeUpdate,
		WindowSize:          cfg.windowSize,
		Combiner:            cfg.combiner,
	}

	namespace := cfg.namespace
	if namespace == "" {
		namespace = "betree-" + uuid.NewString()
	}
	store := nodestore.NewStore[K, V](provider, cfg.cacheBytes, storeCfg, kc, vc, namespace)

	t := &Tree[K, V]{
		store:      store,
		cfg:        cfg,
		storeCfg:   storeCfg,
		timestamps: cfg.timestamps,
	}
	store.SetIDAllocator(t.newNodeID)
	return t
}

func (t *Tree[K, V]) newNodeID() nodestore.NodeID {
	return nodestore.NodeID(atomic.AddUint64(&t.nextNodeID, 1))
}

// Insert stores v at k, superseding any prior message for k, per §4.2's
// Insert semantics.
func (t *Tree[K, V]) Insert(ctx context.Context, k K, v V) error {
	return t.upsert(ctx, k, message.NewInsert(v))
}

// Update deferredly folds v into whatever value k currently maps to (or the
// combiner's Zero, if none), via the tree's combiner. Because the fold is
// deferred, it is not itself synchronous with any concurrent read of k -
// see §5's single-mutator assumption.
func (t *Tree[K, V]) Update(ctx context.Context, k K, v V) error {
	return t.upsert(ctx, k, message.NewUpdate(v))
}

// Erase removes k from the map. A subsequent Update on the same key starts
// from the combiner's Zero, exactly as if k had never been inserted.
func (t *Tree[K, V]) Erase(ctx context.Context, k K) error {
	return t.upsert(ctx, k, message.NewDelete[V]())
}

func (t *Tree[K, V]) upsert(ctx context.Context, k K, msg message.Message[V]) error {
	ts, err := t.timestamps.Next(ctx)
	if err != nil {
		return TimestampAllocationError{Cause: err}
	}
	ctx = log.AddTags(ctx, "op", msg.Op.String(), "timestamp", ts)

	batch := omap.New[message.MessageKey[K], message.Message[V]](func(a, b message.MessageKey[K]) bool {
		return a.Less(b)
	})
	mkey := message.NewMessageKey(k, ts)
	batch.Set(mkey, msg)

	t.mtx.Lock()
	defer t.mtx.Unlock()

	if !t.hasRoot {
		root := nodestore.NewNode[K, V](t.newNodeID(), 0, t.cfg.startingEpsilon, t.storeCfg)
		t.store.Stage(root).Release()
		t.rootID = root.ID()
		t.hasRoot = true
	}

	pinned, err := t.store.Acquire(ctx, t.rootID)
	if err != nil {
		return fmt.Errorf("failed to acquire root: %w", err)
	}
	siblings, err := pinned.Node.Flush(ctx, t.store, batch)
	pinned.Release()
	if err != nil {
		return fmt.Errorf("failed to flush root: %w", err)
	}

	if siblings.Len() > 0 {
		log.Debugf(ctx, "root split into %d siblings, promoting new root", siblings.Len())
		newRoot := nodestore.NewNode[K, V](t.newNodeID(), 0, t.cfg.startingEpsilon, t.storeCfg)
		siblings.Range(func(pk K, info nodestore.ChildInfo) bool {
			newRoot.SetPivot(pk, info)
			return true
		})
		t.store.Stage(newRoot).Release()
		t.rootID = newRoot.ID()
	}
	return nil
}

// Query resolves the current value for k, per §4.8. It returns
// EmptyTreeError if no write has ever landed in this tree, or
// nodestore.ErrNotFound if k has no current value.
func (t *Tree[K, V]) Query(ctx context.Context, k K) (V, error) {
	t.mtx.Lock()
	hasRoot, rootID := t.hasRoot, t.rootID
	t.mtx.Unlock()

	if !hasRoot {
		var zero V
		return zero, EmptyTreeError{}
	}

	pinned, err := t.store.Acquire(ctx, rootID)
	if err != nil {
		var zero V
		return zero, fmt.Errorf("failed to acquire root: %w", err)
	}
	defer pinned.Release()
	return pinned.Node.Query(ctx, t.store, k)
}

// Sync writes back every dirty node to the backing storage.Provider. There
// is no write-ahead log, so a crash between a mutation and Sync loses that
// mutation, per §5's crash-consistency non-goal.
func (t *Tree[K, V]) Sync(ctx context.Context) error {
	return t.store.Sync(ctx)
}

// CacheStats returns cumulative paging-layer hit/miss counts.
func (t *Tree[K, V]) CacheStats() (hits, misses int64) {
	return t.store.CacheStats()
}

// Root returns the current root node id and whether one exists yet.
func (t *Tree[K, V]) Root() (nodestore.NodeID, bool) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.rootID, t.hasRoot
}

// Store exposes the tree's paging layer, for the iterator and for
// maintenance tooling (bench/inspect) that needs to walk nodes directly.
func (t *Tree[K, V]) Store() *nodestore.Store[K, V] {
	return t.store
}

// Compact walks the tree from its root, greedily merging runs of
// undersized siblings back together per §4.5. It is out-of-band
// maintenance, not required for correctness, and does nothing to an empty
// tree. Callers should Sync afterward to persist the result.
func (t *Tree[K, V]) Compact(ctx context.Context) error {
	t.mtx.Lock()
	hasRoot, rootID := t.hasRoot, t.rootID
	t.mtx.Unlock()
	if !hasRoot {
		return nil
	}

	pinned, err := t.store.Acquire(ctx, rootID)
	if err != nil {
		return fmt.Errorf("failed to acquire root: %w", err)
	}
	defer pinned.Release()
	return pinned.Node.Compact(ctx, t.store)
}
