package nodestore

import (
	"cmp"
	"context"

	"github.com/wkalt/betree/message"
	"github.com/wkalt/betree/omap"
)

/*
split() breaks an overflowing node into several siblings sized for roughly
0.4-0.6 of max_node_size each, rather than the classic two-way split: the
node engine batches many messages per flush, so a two-way split under heavy
write load would just overflow again almost immediately. Units of division
are whole pivot-plus-its-buffered-range groups for an internal node, or
individual elements for a leaf, walked in key order so every sibling's
range is contiguous and the returned pivot map can key each sibling by its
lowest routed key.
*/

////////////////////////////////////////////////////////////////////////////////

type splitUnit[K cmp.Ordered] struct {
	hasPivot bool
	pivotKey K
	info     ChildInfo
	elemFrom int
	elemTo   int
}

func (u splitUnit[K]) weight() int {
	w := u.elemTo - u.elemFrom
	if u.hasPivot {
		w++
	}
	return w
}

// split breaks n into several new siblings at level+1, per the sizing
// formula: num_new = max(2, total/(10*max_node_size/24)), per_new =
// ceil(total/num_new). n is logically consumed; its maps are cleared and
// the returned map (keyed by each sibling's lowest routed key) must be
// spliced into n's parent in place of n's own pivot entry.
func (n *Node[K, V]) split(ctx context.Context, store *Store[K, V]) (*omap.Map[K, ChildInfo], error) {
	total := n.pivots.Len() + n.elements.Len()
	denom := 10 * store.cfg.MaxNodeSize / 24
	if denom < 1 {
		denom = 1
	}
	numNew := total / denom
	if numNew < 2 {
		numNew = 2
	}
	perNew := (total + numNew - 1) / numNew

	units := n.splitUnits()
	groups := groupUnits(units, numNew, perNew)

	result := newPivotMap[K]()
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		sibling := NewNode[K, V](store.NewNodeID(), n.level+1, n.epsilon, store.cfg)
		for _, u := range group {
			if u.hasPivot {
				sibling.pivots.Set(u.pivotKey, u.info)
			}
			for i := u.elemFrom; i < u.elemTo; i++ {
				k, v := n.elements.At(i)
				sibling.elements.Set(k, v)
			}
		}
		routeKey, ok := sibling.lowestRoutedKey()
		if !ok {
			continue
		}
		pinned := store.Stage(sibling)
		pinned.Release()
		result.Set(routeKey, ChildInfo{
			ChildID:   sibling.id,
			ChildSize: sibling.PivotCount() + sibling.ElementCount(),
		})
	}

	n.pivots.Clear()
	n.elements.Clear()
	return result, nil
}

// splitUnits partitions n's pivots and elements into the indivisible chunks
// split() distributes across siblings: one chunk per pivot (carrying the
// buffered elements routed to it) for an internal node, or one chunk per
// element for a leaf.
func (n *Node[K, V]) splitUnits() []splitUnit[K] {
	if n.IsLeaf() {
		units := make([]splitUnit[K], n.elements.Len())
		for i := 0; i < n.elements.Len(); i++ {
			units[i] = splitUnit[K]{elemFrom: i, elemTo: i + 1}
		}
		return units
	}

	keys := n.pivots.Keys()
	units := make([]splitUnit[K], 0, len(keys))
	for i, pk := range keys {
		info, _ := n.pivots.Get(pk)
		from := n.elements.LowerBoundIndex(message.RangeStart(pk))
		var to int
		if i+1 < len(keys) {
			to = n.elements.LowerBoundIndex(message.RangeStart(keys[i+1]))
		} else {
			to = n.elements.Len()
		}
		units = append(units, splitUnit[K]{
			hasPivot: true,
			pivotKey: pk,
			info:     info,
			elemFrom: from,
			elemTo:   to,
		})
	}
	return units
}

// groupUnits walks units in order, closing a group once it reaches perNew
// weight, stopping early of the target group count to avoid spilling the
// last group over. The final group absorbs whatever remains.
func groupUnits[K cmp.Ordered](units []splitUnit[K], numNew, perNew int) [][]splitUnit[K] {
	groups := make([][]splitUnit[K], 0, numNew)
	var cur []splitUnit[K]
	weight := 0
	for _, u := range units {
		cur = append(cur, u)
		weight += u.weight()
		if weight >= perNew && len(groups) < numNew-1 {
			groups = append(groups, cur)
			cur = nil
			weight = 0
		}
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// lowestRoutedKey returns the key a sibling should be keyed by in its
// parent's pivot map: its first pivot key, or its first element's key for a
// leaf sibling.
func (n *Node[K, V]) lowestRoutedKey() (K, bool) {
	if pk, ok := n.FirstPivotKey(); ok {
		return pk, true
	}
	if mk, _, ok := n.elements.First(); ok {
		return mk.Key, true
	}
	var zero K
	return zero, false
}
