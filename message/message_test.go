package message_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/betree/message"
)

func TestMessageKeyOrdering(t *testing.T) {
	t.Run("orders by key first", func(t *testing.T) {
		a := message.NewMessageKey(1, 100)
		b := message.NewMessageKey(2, 1)
		require.True(t, a.Less(b))
	})
	t.Run("orders by timestamp within a key", func(t *testing.T) {
		a := message.NewMessageKey(5, 1)
		b := message.NewMessageKey(5, 2)
		require.True(t, a.Less(b))
		require.False(t, b.Less(a))
	})
	t.Run("range start and end bracket all timestamps for a key", func(t *testing.T) {
		start := message.RangeStart(5)
		end := message.RangeEnd(5)
		mid := message.NewMessageKey(5, 12345)
		require.True(t, start.Less(mid))
		require.True(t, mid.Less(end))
	})
}

func TestOpcodeString(t *testing.T) {
	require.Equal(t, "insert", message.Insert.String())
	require.Equal(t, "delete", message.Delete.String())
	require.Equal(t, "update", message.Update.String())
}
