// Package storage provides the Provider interface betree's nodestore uses to
// persist serialized node pages, plus three implementations: an in-memory
// store for tests, a local-filesystem store, and an S3-compatible store.
package storage

import (
	"context"
	"errors"
	"io"
)

/*
Provider describes the minimal set of operations any durable backing store
for node pages must support. Node pages are addressed by an opaque string id
(the nodestore uses its namespace prefix, a slash, and the decimal NodeID) and are always written and read back
whole or at a byte range, never appended to in place — a node's serialized
form gets rewritten in full on every flush that touches it.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrObjectNotFound is returned when an object is not found.
var ErrObjectNotFound = errors.New("object not found")

// Provider is the interface implemented by every storage backend.
type Provider interface {
	Put(ctx context.Context, id string, r io.Reader) error
	Get(ctx context.Context, id string) (io.ReadCloser, error)
	GetRange(ctx context.Context, id string, offset int, length int) (io.ReadSeekCloser, error)
	Delete(ctx context.Context, id string) error
	String() string
}
