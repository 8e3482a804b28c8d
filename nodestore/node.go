// Package nodestore implements the B^ε node engine: the in-memory
// representation of a node, the apply/flush/split/merge/adopt algorithms
// that maintain its capacity invariants under batched messages, and the
// paging layer that pages serialized nodes to and from a storage.Provider.
package nodestore

import (
	"cmp"

	"github.com/wkalt/betree/message"
	"github.com/wkalt/betree/omap"
	"github.com/wkalt/betree/wst"
)

/*
Node is the single node type described by the data model: it is a leaf
exactly when its pivot map is empty. Internal nodes route through pivots to
children and additionally buffer messages destined for those children;
leaves hold only materialized Insert messages, at most one per key. Both
shapes share one struct rather than two Go types because every algorithm in
ยง4 (apply, flush, split, query) branches on "is this a leaf" internally
anyway, and the two shapes differ only in which invariants their elements
map is allowed to hold - there is no separate behavior to hang off a second
type.
*/

////////////////////////////////////////////////////////////////////////////////

// Node is a B^ε tree node: an ordered pivot map (empty for leaves) plus a
// buffered message map, sized by an epsilon-derived capacity split.
type Node[K cmp.Ordered, V any] struct {
	id    NodeID
	level int

	epsilon     float32
	maxPivots   int
	maxMessages int

	pivots   *omap.Map[K, ChildInfo]
	elements *omap.Map[message.MessageKey[K], message.Message[V]]

	adoptionFlag bool

	wst     *wst.Tracker
	opCount int
}

// NewNode allocates an empty node at the given level and epsilon, deriving
// its pivot/buffer capacities from cfg.MaxNodeSize.
func NewNode[K cmp.Ordered, V any](id NodeID, level int, epsilon float32, cfg *Config[K, V]) *Node[K, V] {
	n := &Node[K, V]{
		id:       id,
		level:    level,
		epsilon:  epsilon,
		pivots:   newPivotMap[K](),
		elements: newElementMap[K, V](),
		wst:      wst.NewTracker(cfg.WindowSize),
	}
	n.maxPivots = calculateMaxPivots(cfg.MaxNodeSize, epsilon)
	n.maxMessages = cfg.MaxNodeSize - n.maxPivots
	return n
}

func messageKeyLess[K cmp.Ordered](a, b message.MessageKey[K]) bool {
	return a.Less(b)
}

func newPivotMap[K cmp.Ordered]() *omap.Map[K, ChildInfo] {
	return omap.New[K, ChildInfo](func(a, b K) bool { return a < b })
}

func newElementMap[K cmp.Ordered, V any]() *omap.Map[message.MessageKey[K], message.Message[V]] {
	return omap.New[message.MessageKey[K], message.Message[V]](messageKeyLess[K])
}

// ID returns the node's stable identifier.
func (n *Node[K, V]) ID() NodeID { return n.id }

// Level returns the node's depth, root = 0.
func (n *Node[K, V]) Level() int { return n.level }

// IsLeaf reports whether the node has no pivots, per the data model's
// definition of a leaf.
func (n *Node[K, V]) IsLeaf() bool { return n.pivots.Len() == 0 }

// Epsilon returns the node's current epsilon.
func (n *Node[K, V]) Epsilon() float32 { return n.epsilon }

// PivotCount returns the number of pivot entries currently held.
func (n *Node[K, V]) PivotCount() int { return n.pivots.Len() }

// ElementCount returns the number of buffered messages currently held.
func (n *Node[K, V]) ElementCount() int { return n.elements.Len() }

// MaxPivots returns the node's current pivot capacity.
func (n *Node[K, V]) MaxPivots() int { return n.maxPivots }

// MaxMessages returns the node's current buffer capacity.
func (n *Node[K, V]) MaxMessages() int { return n.maxMessages }

// AdoptionFlagged reports whether the node is a candidate for adopt().
func (n *Node[K, V]) AdoptionFlagged() bool { return n.adoptionFlag }

// FirstPivotKey returns the node's lowest pivot key, if any.
func (n *Node[K, V]) FirstPivotKey() (K, bool) {
	k, _, ok := n.pivots.First()
	return k, ok
}

// SetPivot installs or overwrites a pivot entry. Exported for the tree
// package, which needs to populate a freshly promoted root's pivots from
// the sibling map a root-level split returns.
func (n *Node[K, V]) SetPivot(k K, info ChildInfo) {
	n.pivots.Set(k, info)
}

// Pivots calls f for every pivot entry in key order.
func (n *Node[K, V]) Pivots(f func(k K, info ChildInfo) bool) {
	n.pivots.Range(f)
}

// Elements calls f for every buffered message in key order.
func (n *Node[K, V]) Elements(f func(mk message.MessageKey[K], msg message.Message[V]) bool) {
	n.elements.Range(f)
}

// RangeElements calls f for every buffered message with MessageKey in
// [lo, hi), in key order. A nil lo/hi means unbounded on that side. Used by
// the iterator to bound its per-node scan without exposing the underlying
// omap.Map to package tree.
func (n *Node[K, V]) RangeElements(
	lo, hi *message.MessageKey[K],
	f func(mk message.MessageKey[K], msg message.Message[V]) bool,
) {
	from := 0
	if lo != nil {
		from = n.elements.LowerBoundIndex(*lo)
	}
	to := n.elements.Len()
	if hi != nil {
		to = n.elements.LowerBoundIndex(*hi)
	}
	for i := from; i < to; i++ {
		k, v := n.elements.At(i)
		if !f(k, v) {
			return
		}
	}
}

// RangePivots calls f for every pivot entry that could route a key in
// [lo, hi]: starting from the last pivot key <= lo (so the child that owns
// lo's range is not skipped), through the last pivot key <= hi. A nil
// lo/hi means unbounded on that side.
func (n *Node[K, V]) RangePivots(lo, hi *K, f func(k K, info ChildInfo) bool) {
	keys := n.pivots.Keys()
	from := 0
	if lo != nil {
		from = n.pivots.LowerBoundIndex(*lo)
		if from == len(keys) || keys[from] != *lo {
			from--
		}
		if from < 0 {
			from = 0
		}
	}
	for i := from; i < len(keys); i++ {
		if hi != nil && keys[i] > *hi {
			return
		}
		info, _ := n.pivots.Get(keys[i])
		if !f(keys[i], info) {
			return
		}
	}
}

// Size is an approximate byte footprint, used for LRU cache accounting. It
// counts entries rather than introspecting K/V's actual encoded size,
// which is good enough for a capacity-bounded cache whose entries are
// bounded in count by MaxNodeSize regardless of content.
func (n *Node[K, V]) Size() int64 {
	const approxEntryBytes = 64
	return int64((n.pivots.Len() + n.elements.Len()) * approxEntryBytes)
}

// apply merges a single message into this node's buffer, per ยง4.2.
func (n *Node[K, V]) apply(mkey message.MessageKey[K], msg message.Message[V], comb Combiner[V]) {
	switch msg.Op {
	case message.Insert:
		n.elements.DeleteRange(message.RangeStart(mkey.Key), message.RangeEnd(mkey.Key))
		n.elements.Set(mkey, msg)
	case message.Delete:
		n.elements.DeleteRange(message.RangeStart(mkey.Key), message.RangeEnd(mkey.Key))
		if !n.IsLeaf() {
			n.elements.Set(mkey, msg)
		}
	case message.Update:
		existingKey, existing, ok := n.lastMessageForKey(mkey.Key)
		switch {
		case !ok && n.IsLeaf():
			n.elements.Set(mkey, message.NewInsert(comb.Combine(comb.Zero, msg.Value)))
		case !ok && !n.IsLeaf():
			n.elements.Set(mkey, msg)
		case existing.Op == message.Insert:
			n.elements.Delete(existingKey)
			n.elements.Set(mkey, message.NewInsert(comb.Combine(existing.Value, msg.Value)))
		default: // Delete or Update: preserve the sequence
			n.elements.Set(mkey, msg)
		}
	default:
		panic("nodestore: apply called with unknown opcode")
	}
}

// lastMessageForKey returns the most recently timestamped buffered message
// for key, if one exists. Messages for a single key occupy a contiguous
// range of the elements map (MessageKey orders by Key then Timestamp), so
// the most recent one is simply the last entry in that range.
func (n *Node[K, V]) lastMessageForKey(key K) (message.MessageKey[K], message.Message[V], bool) {
	i := n.elements.LowerBoundIndex(message.RangeStart(key))
	j := n.elements.LowerBoundIndex(message.RangeEnd(key))
	if j <= i {
		var zk message.MessageKey[K]
		var zm message.Message[V]
		return zk, zm, false
	}
	k, m := n.elements.At(j - 1)
	return k, m, true
}

// getPivot returns the largest pivot key <= k, per ยง4.8's get_pivot.
func (n *Node[K, V]) getPivot(k K) (K, ChildInfo, error) {
	first, _, ok := n.pivots.First()
	if !ok || k < first {
		var zero K
		var zeroInfo ChildInfo
		return zero, zeroInfo, ErrOutOfRange
	}
	i := n.pivots.LowerBoundIndex(k)
	if i < n.pivots.Len() {
		if pk, info := n.pivots.At(i); pk == k {
			return pk, info, nil
		}
	}
	pk, info := n.pivots.At(i - 1)
	return pk, info, nil
}
