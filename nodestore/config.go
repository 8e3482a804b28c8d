package nodestore

/*
Config carries every tunable named in the tree's external interface, plus
the user-supplied combiner for folding Update messages. It is shared by
reference across every node in a tree rather than copied into each node,
so that a single tree-construction call fixes behavior for the whole tree;
a node's own derived maxPivots/maxMessages still vary per node under
adaptive epsilon.
*/

////////////////////////////////////////////////////////////////////////////////

// Combiner supplies the associative merge operator and identity value a
// tree needs to fold Update messages. Combine must be treated as possibly
// non-commutative: timestamp order, not argument order, is the source of
// truth for which operand came first.
type Combiner[V any] struct {
	// Zero is the identity value synthesized for the first Update seen on a
	// key that has never been inserted.
	Zero V
	// Combine folds an existing value with an Update operand, in timestamp
	// order: Combine(existing, next).
	Combine func(existing, next V) V
}

// Config holds the tunables supplied at tree construction (spec ยง6).
type Config[K comparable, V any] struct {
	MaxNodeSize         int
	MinNodeSize         int
	MinFlushSize        int
	IsDynamic           bool
	StartingEpsilon     float32
	TunableEpsilonLevel int
	OpsBeforeUpdate     int
	WindowSize          int
	Combiner            Combiner[V]
}

// ChildInfo is the routing record a pivot maps to: the child's node id and
// a cached estimate of its size, refreshed after every flush that touches
// the child.
type ChildInfo struct {
	ChildID   NodeID
	ChildSize int
}
