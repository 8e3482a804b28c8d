package nodestore

import (
	"context"

	"github.com/wkalt/betree/message"
)

/*
merge is optional maintenance: correctness of the tree does not depend on
it, and the reference source leaves it disabled on the hot path (§4.5). It
runs instead through Compact, an out-of-band walk driven by Tree.Compact
and the `betree maintain` command, matching the source's own disposition
of never wiring it into flush/split.
*/

////////////////////////////////////////////////////////////////////////////////

// mergeRange creates a single new sibling holding the union of pivots and
// elements of the children referenced by ids, in order. Callers must splice
// the returned node into the parent's pivot map themselves, keyed by the
// lowest routed key, and must remove the merged children's old entries.
func (n *Node[K, V]) mergeRange(ctx context.Context, store *Store[K, V], ids []NodeID) (*Node[K, V], error) {
	merged := NewNode[K, V](store.NewNodeID(), n.level+1, n.epsilon, store.cfg)
	for _, id := range ids {
		pinned, err := store.Acquire(ctx, id)
		if err != nil {
			return nil, err
		}
		pinned.Node.pivots.Range(func(k K, info ChildInfo) bool {
			merged.pivots.Set(k, info)
			return true
		})
		pinned.Node.elements.Range(func(mk message.MessageKey[K], msg message.Message[V]) bool {
			merged.elements.Set(mk, msg)
			return true
		})
		pinned.Release()
	}
	return merged, nil
}

// mergeSmallChildren greedy-packs consecutive children of n whose cumulative
// child_size fits within 0.6*max_node_size into single merged siblings,
// per §4.5. It returns the ids of children it merged away, which the caller
// is responsible for removing from n's pivot map alongside splicing in the
// merge results.
func (n *Node[K, V]) mergeSmallChildren(ctx context.Context, store *Store[K, V]) ([]*Node[K, V], []NodeID, error) {
	const packFraction = 0.6
	budget := int(packFraction * float64(store.cfg.MaxNodeSize))

	keys := n.pivots.Keys()
	var results []*Node[K, V]
	var absorbed []NodeID

	var run []NodeID
	runSize := 0
	flush := func() error {
		if len(run) < 2 {
			run = nil
			runSize = 0
			return nil
		}
		merged, err := n.mergeRange(ctx, store, run)
		if err != nil {
			return err
		}
		pinned := store.Stage(merged)
		pinned.Release()
		results = append(results, merged)
		absorbed = append(absorbed, run...)
		run = nil
		runSize = 0
		return nil
	}

	for _, pk := range keys {
		info, ok := n.pivots.Get(pk)
		if !ok {
			continue
		}
		if runSize+info.ChildSize > budget {
			if err := flush(); err != nil {
				return nil, nil, err
			}
		}
		run = append(run, info.ChildID)
		runSize += info.ChildSize
	}
	if err := flush(); err != nil {
		return nil, nil, err
	}
	return results, absorbed, nil
}

// Compact walks n and its descendants, applying mergeSmallChildren at every
// inner node it visits and splicing the results into the parent's pivot
// map in place of the children they absorbed. It is the entry point
// Tree.Compact and the `betree maintain` command drive; nothing on the
// insert/query path calls it.
func (n *Node[K, V]) Compact(ctx context.Context, store *Store[K, V]) error {
	if n.IsLeaf() {
		return nil
	}

	merged, absorbed, err := n.mergeSmallChildren(ctx, store)
	if err != nil {
		return err
	}
	if len(absorbed) > 0 {
		absorbedSet := make(map[NodeID]struct{}, len(absorbed))
		for _, id := range absorbed {
			absorbedSet[id] = struct{}{}
		}
		for _, pk := range append([]K(nil), n.pivots.Keys()...) {
			info, ok := n.pivots.Get(pk)
			if ok {
				if _, gone := absorbedSet[info.ChildID]; gone {
					n.pivots.Delete(pk)
				}
			}
		}
		for _, mn := range merged {
			routeKey, ok := mn.lowestRoutedKey()
			if !ok {
				continue
			}
			n.pivots.Set(routeKey, ChildInfo{
				ChildID:   mn.id,
				ChildSize: mn.PivotCount() + mn.ElementCount(),
			})
		}
		store.MarkDirty(n.id)
		for _, id := range absorbed {
			if err := store.DeleteNode(ctx, id); err != nil {
				return err
			}
		}
	}

	var children []NodeID
	n.pivots.Range(func(_ K, info ChildInfo) bool {
		children = append(children, info.ChildID)
		return true
	})
	for _, id := range children {
		pinned, err := store.Acquire(ctx, id)
		if err != nil {
			return err
		}
		err = pinned.Node.Compact(ctx, store)
		pinned.Release()
		if err != nil {
			return err
		}
	}
	return nil
}
