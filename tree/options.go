package tree

/*
Options for tree construction. Every tunable named in the external
interface (max_node_size, min_node_size, ...) has a With constructor here;
New applies a set of defaults first so a caller only needs to override what
it cares about.
*/

////////////////////////////////////////////////////////////////////////////////

import "github.com/wkalt/betree/nodestore"

type config[K comparable, V any] struct {
	maxNodeSize         int
	minNodeSize         int
	minFlushSize        int
	isDynamic           bool
	startingEpsilon     float32
	tunableEpsilonLevel int
	opsBeforeUpdate     int
	windowSize          int
	combiner            nodestore.Combiner[V]
	cacheBytes          int64
	timestamps          TimestampAllocator
	namespace           string
}

func defaultConfig[K comparable, V any](combiner nodestore.Combiner[V]) *config[K, V] {
	return &config[K, V]{
		maxNodeSize:         64,
		minNodeSize:         16,
		minFlushSize:        4,
		isDynamic:           false,
		startingEpsilon:     0.4,
		tunableEpsilonLevel: 0,
		opsBeforeUpdate:     100,
		windowSize:          100,
		combiner:            combiner,
		cacheBytes:          64 << 20,
		timestamps:          NewMemoryTimestampAllocator(),
	}
}

// Option configures a Tree at construction time.
type Option[K comparable, V any] func(*config[K, V])

// WithMaxNodeSize sets the target node capacity in pivots+messages.
func WithMaxNodeSize[K comparable, V any](size int) Option[K, V] {
	return func(c *config[K, V]) {
		c.maxNodeSize = size
	}
}

// WithMinNodeSize sets the MinNodeSize tunable carried in the node config.
// mergeSmallChildren packs runs against a fixed fraction of the max node
// size and does not read this value.
func WithMinNodeSize[K comparable, V any](size int) Option[K, V] {
	return func(c *config[K, V]) {
		c.minNodeSize = size
	}
}

// WithMinFlushSize sets the minimum batch size eligible to flush to an
// on-disk (not already resident) child.
func WithMinFlushSize[K comparable, V any](size int) Option[K, V] {
	return func(c *config[K, V]) {
		c.minFlushSize = size
	}
}

// WithDynamicEpsilon turns on the adaptive epsilon controller.
func WithDynamicEpsilon[K comparable, V any]() Option[K, V] {
	return func(c *config[K, V]) {
		c.isDynamic = true
	}
}

// WithStartingEpsilon sets the epsilon new nodes are created with.
func WithStartingEpsilon[K comparable, V any](epsilon float32) Option[K, V] {
	return func(c *config[K, V]) {
		c.startingEpsilon = epsilon
	}
}

// WithTunableEpsilonLevel sets the deepest level (the largest level number)
// at which nodes collect WST statistics and recompute epsilon; nodes from
// the root (level 0) down to this level take part.
func WithTunableEpsilonLevel[K comparable, V any](level int) Option[K, V] {
	return func(c *config[K, V]) {
		c.tunableEpsilonLevel = level
	}
}

// WithOpsBeforeUpdate sets how many operations a tunable-level node
// observes between WST consultations.
func WithOpsBeforeUpdate[K comparable, V any](n int) Option[K, V] {
	return func(c *config[K, V]) {
		c.opsBeforeUpdate = n
	}
}

// WithWindowSize sets the WST's sliding window size.
func WithWindowSize[K comparable, V any](n int) Option[K, V] {
	return func(c *config[K, V]) {
		c.windowSize = n
	}
}

// WithCacheBytes bounds the node paging layer's resident cache size.
func WithCacheBytes[K comparable, V any](bytes int64) Option[K, V] {
	return func(c *config[K, V]) {
		c.cacheBytes = bytes
	}
}

// WithTimestampAllocator installs the source of fresh write timestamps.
// The default is an in-memory monotone counter, scoped to the Tree value
// itself rather than shared process-wide state.
func WithTimestampAllocator[K comparable, V any](ta TimestampAllocator) Option[K, V] {
	return func(c *config[K, V]) {
		c.timestamps = ta
	}
}

// WithNamespace sets the storage prefix this tree's nodes are written
// under. Multiple trees can share one storage.Provider as long as each
// uses a distinct namespace; New generates a random one when this option
// is not supplied, so the common single-tree case never has to think
// about it.
func WithNamespace[K comparable, V any](namespace string) Option[K, V] {
	return func(c *config[K, V]) {
		c.namespace = namespace
	}
}
