package nodestore

import (
	"context"

	"github.com/wkalt/betree/message"
)

/*
adopt shortens the tree by pulling grandchildren up to direct children,
dropping the intermediate node. It runs lazily off the read path once a
node's adoption_flag is set by an epsilon change elsewhere in the tree, per
§4.7's "mark descendants as adoption candidates" and §4.8's "after
producing a result, if adoption_flag is set, call adopt()". The effective
key->value map is unchanged: a dropped child's buffered messages are
replayed into this node via the same apply() rules a flush would use, so no
mutation is lost, only re-homed.
*/

////////////////////////////////////////////////////////////////////////////////

// adopt absorbs eligible children's children as n's own, per §4.6.
// Preconditions: n is not a leaf, and n has room left under maxPivots.
func (n *Node[K, V]) adopt(ctx context.Context, store *Store[K, V]) error {
	if n.IsLeaf() {
		n.adoptionFlag = false
		return nil
	}
	if n.pivots.Len() >= n.maxPivots {
		n.adoptionFlag = false
		return nil
	}

	candidates := append([]K(nil), n.pivots.Keys()...)
	for _, pk := range candidates {
		info, ok := n.pivots.Get(pk)
		if !ok {
			continue
		}
		if err := n.tryAdopt(ctx, store, pk, info); err != nil {
			return err
		}
	}

	if err := n.refreshChildSizes(ctx, store); err != nil {
		return err
	}
	n.adoptionFlag = false
	store.MarkDirty(n.id)
	return nil
}

func (n *Node[K, V]) tryAdopt(ctx context.Context, store *Store[K, V], pk K, info ChildInfo) error {
	pinned, err := store.Acquire(ctx, info.ChildID)
	if err != nil {
		return err
	}
	child := pinned.Node
	if child.IsLeaf() || n.pivots.Len()-1+child.pivots.Len() > n.maxPivots {
		pinned.Release()
		return nil
	}

	child.elements.Range(func(mk message.MessageKey[K], msg message.Message[V]) bool {
		n.apply(mk, msg, store.cfg.Combiner)
		return true
	})

	grandchildren := child.pivots.Clone()
	n.pivots.Delete(pk)
	grandchildren.Range(func(gk K, ginfo ChildInfo) bool {
		n.pivots.Set(gk, ginfo)
		return true
	})
	pinned.Release()

	var decrementErr error
	grandchildren.Range(func(_ K, ginfo ChildInfo) bool {
		gcPinned, err := store.Acquire(ctx, ginfo.ChildID)
		if err != nil {
			decrementErr = err
			return false
		}
		gcPinned.Node.level--
		store.MarkDirty(ginfo.ChildID)
		gcPinned.Release()
		return true
	})
	if decrementErr != nil {
		return decrementErr
	}

	store.MarkDirty(n.id)
	return store.DeleteNode(ctx, info.ChildID)
}

func (n *Node[K, V]) refreshChildSizes(ctx context.Context, store *Store[K, V]) error {
	for _, pk := range n.pivots.Keys() {
		info, ok := n.pivots.Get(pk)
		if !ok {
			continue
		}
		pinned, err := store.Acquire(ctx, info.ChildID)
		if err != nil {
			return err
		}
		info.ChildSize = pinned.Node.PivotCount() + pinned.Node.ElementCount()
		n.pivots.Set(pk, info)
		pinned.Release()
	}
	return nil
}
