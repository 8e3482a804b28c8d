package tree

import (
	"cmp"
	"context"
	"fmt"

	"github.com/wkalt/betree/message"
	"github.com/wkalt/betree/nodestore"
)

/*
Iterator produces the ordered, folded scan §4.10 describes: a lazy,
finite, non-restartable sequence of (key, value) pairs over the tree's
effective key->value map, bounded to a [lo, hi] key range. It is grounded
on the teacher's tree.Iterator (a stack-based descent, driven one node at
a time, folding as it goes) - generalized here from folding MCAP messages
into folding Insert/Delete/Update messages.

The core trick is that a node's own buffered messages and the concatenation
of its children's message streams are each already sorted by MessageKey, so
producing the merged, fully sorted stream for a subtree is a plain two-way
merge: this node's buffer against "whichever child is currently open".
Because a pivot's routed range never overlaps another pivot's, children
never need to be interleaved with each other - only with this node's own
buffer - so at most one child is pinned at a time.
*/

////////////////////////////////////////////////////////////////////////////////

type entry[K cmp.Ordered, V any] struct {
	mk  message.MessageKey[K]
	msg message.Message[V]
}

// cursor walks one subtree's worth of messages in MessageKey order,
// merging this node's own buffer against its children's streams as it
// goes. It holds a pin on its own node for its entire lifetime and on at
// most one child at a time.
type cursor[K cmp.Ordered, V any] struct {
	ctx   context.Context
	store *nodestore.Store[K, V]
	lo    *message.MessageKey[K]
	hi    *message.MessageKey[K]
	loKey *K
	hiKey *K

	pinned *nodestore.Pinned[K, V]

	buf    []entry[K, V]
	bufIdx int

	children []nodestore.ChildInfo
	childIdx int
	child    *cursor[K, V]

	closed bool
}

func openCursor[K cmp.Ordered, V any](
	ctx context.Context, store *nodestore.Store[K, V], id nodestore.NodeID,
	lo, hi *message.MessageKey[K], loKey, hiKey *K,
) (*cursor[K, V], error) {
	pinned, err := store.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	c := &cursor[K, V]{
		ctx: ctx, store: store, lo: lo, hi: hi, loKey: loKey, hiKey: hiKey,
		pinned: pinned,
	}
	pinned.Node.RangeElements(lo, hi, func(mk message.MessageKey[K], msg message.Message[V]) bool {
		c.buf = append(c.buf, entry[K, V]{mk: mk, msg: msg})
		return true
	})
	if !pinned.Node.IsLeaf() {
		pinned.Node.RangePivots(loKey, hiKey, func(_ K, info nodestore.ChildInfo) bool {
			c.children = append(c.children, info)
			return true
		})
	}
	return c, nil
}

// close releases this cursor's own pin and, transitively, any open child's.
// Safe to call more than once.
func (c *cursor[K, V]) close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.child != nil {
		c.child.close()
		c.child = nil
	}
	c.pinned.Release()
}

// ensureChild opens the next child cursor if none is currently open and one
// remains.
func (c *cursor[K, V]) ensureChild() error {
	if c.child != nil || c.childIdx >= len(c.children) {
		return nil
	}
	info := c.children[c.childIdx]
	c.childIdx++
	child, err := openCursor[K, V](c.ctx, c.store, info.ChildID, c.lo, c.hi, c.loKey, c.hiKey)
	if err != nil {
		return err
	}
	c.child = child
	return nil
}

// peek returns the smallest remaining entry in this subtree without
// consuming it.
func (c *cursor[K, V]) peek() (entry[K, V], bool, error) {
	if err := c.ensureChild(); err != nil {
		return entry[K, V]{}, false, err
	}
	var childEntry entry[K, V]
	haveChild := false
	for c.child != nil {
		e, ok, err := c.child.peek()
		if err != nil {
			return entry[K, V]{}, false, err
		}
		if ok {
			childEntry, haveChild = e, true
			break
		}
		c.child.close()
		c.child = nil
		if err := c.ensureChild(); err != nil {
			return entry[K, V]{}, false, err
		}
	}

	haveBuf := c.bufIdx < len(c.buf)
	switch {
	case haveBuf && haveChild:
		if c.buf[c.bufIdx].mk.Less(childEntry.mk) {
			return c.buf[c.bufIdx], true, nil
		}
		return childEntry, true, nil
	case haveBuf:
		return c.buf[c.bufIdx], true, nil
	case haveChild:
		return childEntry, true, nil
	default:
		return entry[K, V]{}, false, nil
	}
}

// advance consumes the entry last returned by peek.
func (c *cursor[K, V]) advance() error {
	e, ok, err := c.peek()
	if err != nil || !ok {
		return err
	}
	if c.bufIdx < len(c.buf) && c.buf[c.bufIdx].mk == e.mk {
		c.bufIdx++
		return nil
	}
	return c.child.advance()
}

// Iterator is the public handle returned by Tree.Iterate.
type Iterator[K cmp.Ordered, V any] struct {
	root      *cursor[K, V]
	comb      nodestore.Combiner[V]
	exhausted bool
}

// Next advances the iterator and returns the next (key, value) pair in key
// order, folding every message buffered for that key across the whole tree
// (same rules as apply, §4.2). Deleted keys are skipped. ok is false once
// the sequence is exhausted; the Iterator releases its held pins at that
// point, and is not restartable.
func (it *Iterator[K, V]) Next() (k K, v V, ok bool, err error) {
	if it.exhausted {
		return k, v, false, nil
	}
	for {
		e, has, perr := it.root.peek()
		if perr != nil {
			it.Close()
			return k, v, false, perr
		}
		if !has {
			it.Close()
			return k, v, false, nil
		}
		key := e.mk.Key
		hasValue := false
		var val V
		for has && e.mk.Key == key {
			switch e.msg.Op {
			case message.Insert:
				hasValue, val = true, e.msg.Value
			case message.Delete:
				hasValue = false
			case message.Update:
				if hasValue {
					val = it.comb.Combine(val, e.msg.Value)
				} else {
					val, hasValue = it.comb.Combine(it.comb.Zero, e.msg.Value), true
				}
			default:
				it.Close()
				return k, v, false, fmt.Errorf("tree: unexpected opcode %v in iterator stream", e.msg.Op)
			}
			if aerr := it.root.advance(); aerr != nil {
				it.Close()
				return k, v, false, aerr
			}
			e, has, perr = it.root.peek()
			if perr != nil {
				it.Close()
				return k, v, false, perr
			}
		}
		if hasValue {
			return key, val, true, nil
		}
		// key was deleted with no later Insert/Update: skip and continue.
	}
}

// Close releases every pin this iterator still holds. Safe to call more
// than once, and automatically called once Next reports exhaustion.
func (it *Iterator[K, V]) Close() {
	if it.exhausted {
		return
	}
	it.exhausted = true
	it.root.close()
}

// Iterate returns an Iterator over keys in [lo, hi] (either bound nil for
// unbounded), folding messages across the whole tree. Corresponds to §4.10's
// begin/lower_bound/upper_bound/end: lo == nil is Begin, hi == nil is End,
// a non-nil lo behaves like LowerBound(*lo) (inclusive), and a non-nil hi
// behaves like UpperBound(*hi) (also inclusive of *hi itself, matching the
// C++ STL convention the reference design follows).
func (t *Tree[K, V]) Iterate(ctx context.Context, lo, hi *K) (*Iterator[K, V], error) {
	t.mtx.Lock()
	hasRoot, rootID := t.hasRoot, t.rootID
	t.mtx.Unlock()

	it := &Iterator[K, V]{comb: t.cfg.combiner}
	if !hasRoot {
		it.exhausted = true
		return it, nil
	}

	var loMK, hiMK *message.MessageKey[K]
	if lo != nil {
		mk := message.RangeStart(*lo)
		loMK = &mk
	}
	if hi != nil {
		mk := message.RangeEnd(*hi)
		hiMK = &mk
	}

	root, err := openCursor[K, V](ctx, t.store, rootID, loMK, hiMK, lo, hi)
	if err != nil {
		return nil, err
	}
	it.root = root
	return it, nil
}
