package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/betree/storage"
)

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()

	t.Run("get missing returns ErrObjectNotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		require.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("put and get", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a", strings.NewReader("hello world")))
		rc, err := store.Get(ctx, "a")
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.Equal(t, "hello world", string(data))
	})

	t.Run("get range", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "b", strings.NewReader("0123456789")))
		rsc, err := store.GetRange(ctx, "b", 2, 4)
		require.NoError(t, err)
		defer rsc.Close()
		data, err := io.ReadAll(rsc)
		require.NoError(t, err)
		require.Equal(t, "2345", string(data))
	})

	t.Run("put overwrites", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a", strings.NewReader("new")))
		rc, err := store.Get(ctx, "a")
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.Equal(t, "new", string(data))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "a"))
		_, err := store.Get(ctx, "a")
		require.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("delete missing is not an error", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "never-existed"))
	})

	t.Run("String", func(t *testing.T) {
		require.Equal(t, "memory", store.String())
	})
}
