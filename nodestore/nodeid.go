package nodestore

import "github.com/wkalt/betree/util"

/*
NodeID identifies a node within a single tree. Unlike a storage object
identifier, it says nothing about where the node's bytes physically live -
the paging layer is free to rewrite a node's on-disk representation on every
flush that touches it, under the same id. Ids are allocated from a
tree-scoped monotone counter (see tree.Tree) and are stable for a node's
logical lifetime, even as its content is replaced wholesale by split,
merge, or adoption.
*/

////////////////////////////////////////////////////////////////////////////////

// NodeID is a tree-scoped node identifier.
type NodeID uint64

// String renders the id in decimal; the paging layer stores a node under
// its namespace prefix, a slash, and this string.
func (id NodeID) String() string {
	return util.FormatUint64(uint64(id))
}
