package cmd

import (
	"github.com/wkalt/betree/codec"
	"github.com/wkalt/betree/nodestore"
	"github.com/wkalt/betree/storage"
	"github.com/wkalt/betree/tree"
)

/*
Both bench and inspect operate on the same concrete instantiation: keys are
strings, values are byte blobs, and the combiner concatenates Update
operands onto whatever is already there. There's nothing betree-specific
about that choice - it's just a demo shape a CLI can generate synthetic
load against without needing a real schema.
*/

////////////////////////////////////////////////////////////////////////////////

func bytesCombiner() nodestore.Combiner[[]byte] {
	return nodestore.Combiner[[]byte]{
		Zero: nil,
		Combine: func(existing, next []byte) []byte {
			out := make([]byte, 0, len(existing)+len(next))
			out = append(out, existing...)
			out = append(out, next...)
			return out
		},
	}
}

// newDemoProvider returns the storage backend for dir ("" means in-memory)
// along with the concrete *storage.MemStore when that's what was chosen, so
// callers that want to report resident object counts (a debug amenity real
// backends can't offer as cheaply) can do so without a type assertion at
// every call site.
func newDemoProvider(dir string) (storage.Provider, *storage.MemStore) {
	if dir == "" {
		mem := storage.NewMemStore()
		return mem, mem
	}
	return storage.NewFileStore(dir), nil
}

func newDemoTree(dir string, maxNodeSize int, dynamicEpsilon bool) *tree.Tree[string, []byte] {
	provider, _ := newDemoProvider(dir)
	return newDemoTreeFromProvider(provider, maxNodeSize, dynamicEpsilon)
}

func newDemoTreeFromProvider(
	provider storage.Provider, maxNodeSize int, dynamicEpsilon bool,
) *tree.Tree[string, []byte] {
	opts := []tree.Option[string, []byte]{
		tree.WithMaxNodeSize[string, []byte](maxNodeSize),
	}
	if dynamicEpsilon {
		opts = append(opts, tree.WithDynamicEpsilon[string, []byte]())
	}

	return tree.New[string, []byte](
		provider, bytesCombiner(), codec.StringCodec{}, codec.BytesCodec{}, opts...,
	)
}
