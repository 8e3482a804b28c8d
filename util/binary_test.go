package util_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/betree/util"
)

func TestBinaryRoundTrip(t *testing.T) {
	buf := make([]byte, 8)

	n := util.U8(buf, 0xAB)
	require.Equal(t, 1, n)
	var u8 uint8
	require.Equal(t, 1, util.ReadU8(buf, &u8))
	require.Equal(t, uint8(0xAB), u8)

	n = util.U32(buf, 0xDEADBEEF)
	require.Equal(t, 4, n)
	var u32 uint32
	require.Equal(t, 4, util.ReadU32(buf, &u32))
	require.Equal(t, uint32(0xDEADBEEF), u32)

	n = util.U64(buf, 0x0123456789ABCDEF)
	require.Equal(t, 8, n)
	var u64 uint64
	require.Equal(t, 8, util.ReadU64(buf, &u64))
	require.Equal(t, uint64(0x0123456789ABCDEF), u64)

	n = util.Float32(buf, 0.40)
	require.Equal(t, 4, n)
	var f32 float32
	require.Equal(t, 4, util.ReadFloat32(buf, &f32))
	require.InDelta(t, float64(0.40), float64(f32), 0.0001)
}
