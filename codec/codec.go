// Package codec supplies the key/value serialization framework the node
// engine needs to turn user types into bytes for storage, and a couple of
// ready-made codecs for common key/value shapes.
package codec

import (
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/wkalt/betree/util"
)

/*
The node engine is generic over K and V and has no idea how to turn either
into bytes on its own - callers supply a Codec[K] and a Codec[V] at tree
construction, the way a serialization library takes a schema. JSONCodec is
the default for anyone who doesn't want to write one: it is not the most
compact wire format, but it round-trips any JSON-marshalable type with zero
boilerplate, matching how the teacher's own inner-node format leans on JSON
rather than a bespoke binary layout for anything beyond fixed-width scalars.
*/

////////////////////////////////////////////////////////////////////////////////

// Codec encodes and decodes values of type T to and from bytes.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSONCodec encodes via goccy/go-json, a drop-in faster replacement for
// encoding/json.
type JSONCodec[T any] struct{}

// Encode marshals v to JSON.
func (JSONCodec[T]) Encode(v T) ([]byte, error) {
	data, err := gojson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	return data, nil
}

// Decode unmarshals data into a T.
func (JSONCodec[T]) Decode(data []byte) (T, error) {
	var v T
	if err := gojson.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return v, nil
}

// BytesCodec is the identity codec for values that are already []byte.
type BytesCodec struct{}

// Encode returns v unchanged.
func (BytesCodec) Encode(v []byte) ([]byte, error) { return v, nil }

// Decode returns data unchanged.
func (BytesCodec) Decode(data []byte) ([]byte, error) { return data, nil }

// StringCodec encodes a string as its raw UTF-8 bytes.
type StringCodec struct{}

// Encode returns the raw bytes of v.
func (StringCodec) Encode(v string) ([]byte, error) { return []byte(v), nil }

// Decode returns data interpreted as a string.
func (StringCodec) Decode(data []byte) (string, error) { return string(data), nil }

// Uint64Codec encodes a uint64 as 8 little-endian bytes.
type Uint64Codec struct{}

// Encode writes v as 8 little-endian bytes.
func (Uint64Codec) Encode(v uint64) ([]byte, error) {
	buf := make([]byte, 8)
	util.U64(buf, v)
	return buf, nil
}

// Decode reads a uint64 from 8 little-endian bytes.
func (Uint64Codec) Decode(data []byte) (uint64, error) {
	if len(data) < 8 {
		return 0, fmt.Errorf("uint64 codec: need 8 bytes, got %d", len(data))
	}
	var v uint64
	util.ReadU64(data, &v)
	return v, nil
}
