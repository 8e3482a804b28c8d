package nodestore

import (
	"errors"
	"fmt"
)

/*
Error taxonomy: NotFound is the expected negative result of a query or
iteration step. OutOfRange signals a pivot lookup below a node's first
pivot, which should never happen once an insert has established coverage -
it indicates an internal invariant violation, not a user error.
SerializationError wraps a codec failure from the paging layer. All three
support errors.Is against their zero-value sentinel so callers can match on
kind without caring about the wrapped detail.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrNotFound is returned when a query or iteration step finds no value for
// a key.
var ErrNotFound = errors.New("key not found")

// ErrOutOfRange is returned when a pivot lookup falls below a node's first
// pivot key.
var ErrOutOfRange = errors.New("key out of range")

// NodeNotFoundError is returned when a node id cannot be resolved by the
// paging layer, either because it was never written or because the backing
// store has lost it.
type NodeNotFoundError struct {
	NodeID NodeID
}

func (e NodeNotFoundError) Error() string {
	return fmt.Sprintf("node %s not found", e.NodeID)
}

func (e NodeNotFoundError) Is(target error) bool {
	_, ok := target.(NodeNotFoundError)
	return ok
}

// SerializationError wraps a failure to encode or decode a node record.
type SerializationError struct {
	NodeID NodeID
	Cause  error
}

func (e SerializationError) Error() string {
	return fmt.Sprintf("failed to serialize node %s: %s", e.NodeID, e.Cause)
}

func (e SerializationError) Is(target error) bool {
	_, ok := target.(SerializationError)
	return ok
}

func (e SerializationError) Unwrap() error {
	return e.Cause
}
