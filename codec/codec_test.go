package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/betree/codec"
)

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func TestJSONCodecRoundTrip(t *testing.T) {
	c := codec.JSONCodec[point]{}
	data, err := c.Encode(point{X: 1, Y: 2})
	require.NoError(t, err)

	v, err := c.Decode(data)
	require.NoError(t, err)
	require.Equal(t, point{X: 1, Y: 2}, v)
}

func TestBytesCodecIsIdentity(t *testing.T) {
	c := codec.BytesCodec{}
	data, err := c.Encode([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)

	v, err := c.Decode(data)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), v)
}

func TestStringCodecRoundTrip(t *testing.T) {
	c := codec.StringCodec{}
	data, err := c.Encode("hello world")
	require.NoError(t, err)

	v, err := c.Decode(data)
	require.NoError(t, err)
	require.Equal(t, "hello world", v)
}

func TestUint64CodecRoundTrip(t *testing.T) {
	c := codec.Uint64Codec{}
	data, err := c.Encode(123456789)
	require.NoError(t, err)
	require.Len(t, data, 8)

	v, err := c.Decode(data)
	require.NoError(t, err)
	require.Equal(t, uint64(123456789), v)
}

func TestUint64CodecDecodeTooShort(t *testing.T) {
	c := codec.Uint64Codec{}
	_, err := c.Decode([]byte{1, 2, 3})
	require.Error(t, err)
}
