package nodestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/wkalt/betree/message"
)

/*
Query resolves a point lookup by folding whatever this node's own buffer
has deferred for the key with whatever its subtree already holds, per §4.8.
A node's buffer for a single key is never more than one of three shapes at
any instant (apply's collapsing rules guarantee this): a lone Insert, a lone
Delete optionally followed by a chain of Updates, or a lone Update
optionally followed by a chain of further Updates. The three branches below
mirror those three shapes rather than handling an arbitrary message
sequence.
*/

////////////////////////////////////////////////////////////////////////////////

// Query resolves the current value for k, descending through buffered
// messages and child subtrees as needed. It runs adopt() lazily before
// returning if this node is flagged for it.
func (n *Node[K, V]) Query(ctx context.Context, store *Store[K, V], k K) (V, error) {
	changed, grew := n.maybeUpdateEpsilon(store.cfg, false)
	if changed {
		if n.level == store.cfg.TunableEpsilonLevel && store.cfg.IsDynamic {
			if err := store.propagateEpsilon(ctx, n); err != nil {
				var zero V
				return zero, err
			}
		}
		if grew {
			if err := store.flagAdoption(ctx, n); err != nil {
				var zero V
				return zero, err
			}
		}
	}

	var result V
	var err error
	if n.IsLeaf() {
		result, err = n.queryLeaf(k)
	} else {
		result, err = n.queryNonLeaf(ctx, store, k)
	}

	if n.adoptionFlag {
		if adoptErr := n.adopt(ctx, store); adoptErr != nil {
			return result, adoptErr
		}
	}
	return result, err
}

func (n *Node[K, V]) queryLeaf(k K) (V, error) {
	_, msg, ok := n.lastMessageForKey(k)
	if !ok {
		var zero V
		return zero, ErrNotFound
	}
	return msg.Value, nil
}

func (n *Node[K, V]) queryNonLeaf(ctx context.Context, store *Store[K, V], k K) (V, error) {
	i := n.elements.LowerBoundIndex(message.RangeStart(k))
	j := n.elements.LowerBoundIndex(message.RangeEnd(k))
	comb := store.cfg.Combiner

	if j <= i {
		_, info, err := n.getPivot(k)
		if err != nil {
			var zero V
			return zero, err
		}
		return n.queryChild(ctx, store, info.ChildID, k)
	}

	_, first := n.elements.At(i)
	switch first.Op {
	case message.Insert:
		acc := first.Value
		for idx := i + 1; idx < j; idx++ {
			_, m := n.elements.At(idx)
			acc = comb.Combine(acc, m.Value)
		}
		return acc, nil

	case message.Delete:
		if j <= i+1 {
			var zero V
			return zero, ErrNotFound
		}
		_, second := n.elements.At(i + 1)
		var acc V
		startIdx := i + 1
		if second.Op == message.Insert {
			acc = second.Value
			startIdx = i + 2
		} else {
			acc = comb.Zero
		}
		for idx := startIdx; idx < j; idx++ {
			_, m := n.elements.At(idx)
			acc = comb.Combine(acc, m.Value)
		}
		return acc, nil

	case message.Update:
		_, info, pivotErr := n.getPivot(k)
		acc := comb.Zero
		if pivotErr == nil {
			base, err := n.queryChild(ctx, store, info.ChildID, k)
			switch {
			case err == nil:
				acc = base
			case errors.Is(err, ErrNotFound):
				// no prior value downstream; fold from zero.
			default:
				var zero V
				return zero, err
			}
		} else if !errors.Is(pivotErr, ErrOutOfRange) {
			var zero V
			return zero, pivotErr
		}
		for idx := i; idx < j; idx++ {
			_, m := n.elements.At(idx)
			acc = comb.Combine(acc, m.Value)
		}
		return acc, nil

	default:
		var zero V
		return zero, fmt.Errorf("nodestore: unexpected opcode %v in non-leaf buffer", first.Op)
	}
}

func (n *Node[K, V]) queryChild(ctx context.Context, store *Store[K, V], childID NodeID, k K) (V, error) {
	pinned, err := store.Acquire(ctx, childID)
	if err != nil {
		var zero V
		return zero, err
	}
	defer pinned.Release()
	return pinned.Node.Query(ctx, store, k)
}
