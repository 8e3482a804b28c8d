package util

import (
	"encoding/binary"
	"math"
)

/*
Fixed-width integer encode/decode helpers for the node wire format. Each
"U" function writes its value at the start of buf and returns the number of
bytes written, so call sites can thread an offset through a sequence of
writes the way the node codec does.
*/

////////////////////////////////////////////////////////////////////////////////

// U8 writes v at the start of buf and returns 1.
func U8(buf []byte, v uint8) int {
	buf[0] = v
	return 1
}

// ReadU8 reads a uint8 from the start of buf into v and returns 1.
func ReadU8(buf []byte, v *uint8) int {
	*v = buf[0]
	return 1
}

// U32 writes v as little-endian at the start of buf and returns 4.
func U32(buf []byte, v uint32) int {
	binary.LittleEndian.PutUint32(buf, v)
	return 4
}

// ReadU32 reads a little-endian uint32 from the start of buf into v and
// returns 4.
func ReadU32(buf []byte, v *uint32) int {
	*v = binary.LittleEndian.Uint32(buf)
	return 4
}

// U64 writes v as little-endian at the start of buf and returns 8.
func U64(buf []byte, v uint64) int {
	binary.LittleEndian.PutUint64(buf, v)
	return 8
}

// ReadU64 reads a little-endian uint64 from the start of buf into v and
// returns 8.
func ReadU64(buf []byte, v *uint64) int {
	*v = binary.LittleEndian.Uint64(buf)
	return 8
}

// Float32 writes v as little-endian at the start of buf and returns 4.
func Float32(buf []byte, v float32) int {
	return U32(buf, math.Float32bits(v))
}

// ReadFloat32 reads a little-endian float32 from the start of buf into v and
// returns 4.
func ReadFloat32(buf []byte, v *float32) int {
	var bits uint32
	n := ReadU32(buf, &bits)
	*v = math.Float32frombits(bits)
	return n
}
