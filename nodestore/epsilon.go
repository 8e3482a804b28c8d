package nodestore

import "math"

/*
The adaptive epsilon controller retunes a node's pivot/buffer split from its
WST's read/write history. calculateMaxPivots snaps the raw B^ε pivot count
to a multiple of 4: a cache-friendly fanout, and one that biases larger
nodes toward more pivots (shallower trees) at the tie points, per ยง4.7.
*/

////////////////////////////////////////////////////////////////////////////////

// calculateMaxPivots computes B^ε and rounds it to the nearest multiple of
// 4, with the tie-break rules ยง4.7 specifies.
func calculateMaxPivots(maxNodeSize int, epsilon float32) int {
	b := int(math.Round(math.Pow(float64(maxNodeSize), float64(epsilon))))
	r := b % 4
	switch {
	case r < 2:
		return b - r
	case r == 2:
		if b > 32 {
			return b + 2
		}
		return b - 2
	default:
		return b + (4 - r)
	}
}

// setEpsilon recomputes this node's derived capacities for a new epsilon.
// It reports whether epsilon actually changed and whether maxPivots grew,
// since growth is what makes this node's children candidates for adoption.
func (n *Node[K, V]) setEpsilon(epsilon float32, maxNodeSize int) (changed, grew bool) {
	if n.epsilon == epsilon {
		return false, false
	}
	oldMaxPivots := n.maxPivots
	n.epsilon = epsilon
	n.maxPivots = calculateMaxPivots(maxNodeSize, epsilon)
	n.maxMessages = maxNodeSize - n.maxPivots
	return true, n.maxPivots > oldMaxPivots
}

// maybeUpdateEpsilon increments the node's operation counter and, once it
// reaches cfg.OpsBeforeUpdate, asks the WST for a fresh epsilon and applies
// it via setEpsilon. It is a no-op unless adaptive mode is on and this node
// is at or above (numerically <=) the tunable level, per ยง4.7/4.3/4.8.
//
// Returns whether epsilon changed at this node and whether it grew, so
// callers (flush/query) can decide whether to propagate and flag adoption.
func (n *Node[K, V]) maybeUpdateEpsilon(cfg *Config[K, V], isWrite bool) (changed, grew bool) {
	if !cfg.IsDynamic || n.level > cfg.TunableEpsilonLevel {
		return false, false
	}
	if isWrite {
		n.wst.AddWrite()
	} else {
		n.wst.AddRead()
	}
	n.opCount++
	if n.opCount < cfg.OpsBeforeUpdate {
		return false, false
	}
	n.opCount = 0
	return n.setEpsilon(n.wst.Epsilon(), cfg.MaxNodeSize)
}
