package nodestore

import (
	"cmp"
	"context"
)

/*
The reference design dispatches epsilon changes and adoption flags by
recursing into every child inline. We replace that with an explicit
work-list walk from the node whose epsilon just changed: the behavioral
contract is the same ("every node at or below the tunable level observes
the new epsilon/flag before its next operation"), but a work list composes
more simply with the paging layer's acquire/release discipline than a
call stack that holds every descendant pinned at once.
*/

////////////////////////////////////////////////////////////////////////////////

// propagateEpsilon pushes n's current epsilon down to every descendant.
// Called when n sits exactly at the tunable level and just changed epsilon
// in adaptive mode, per the epsilon controller's propagation contract.
func (s *Store[K, V]) propagateEpsilon(ctx context.Context, n *Node[K, V]) error {
	queue := childIDs(n)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		pinned, err := s.Acquire(ctx, id)
		if err != nil {
			return err
		}
		pinned.Node.setEpsilon(n.epsilon, s.cfg.MaxNodeSize)
		s.MarkDirty(id)
		queue = append(queue, childIDs(pinned.Node)...)
		pinned.Release()
	}
	return nil
}

// flagAdoption marks n as an adoption candidate after its maxPivots grew.
// If n sits exactly at the tunable level, the flag cascades to every
// descendant as well; above the tunable level, only n itself is flagged.
func (s *Store[K, V]) flagAdoption(ctx context.Context, n *Node[K, V]) error {
	n.adoptionFlag = true
	s.MarkDirty(n.id)

	if n.level != s.cfg.TunableEpsilonLevel {
		return nil
	}

	queue := childIDs(n)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		pinned, err := s.Acquire(ctx, id)
		if err != nil {
			return err
		}
		pinned.Node.adoptionFlag = true
		s.MarkDirty(id)
		queue = append(queue, childIDs(pinned.Node)...)
		pinned.Release()
	}
	return nil
}

func childIDs[K cmp.Ordered, V any](n *Node[K, V]) []NodeID {
	ids := make([]NodeID, 0, n.pivots.Len())
	n.pivots.Range(func(_ K, info ChildInfo) bool {
		ids = append(ids, info.ChildID)
		return true
	})
	return ids
}
