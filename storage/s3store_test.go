package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/betree/storage"
	"github.com/wkalt/betree/storage/miniotest"
)

func TestS3Store(t *testing.T) {
	mc, bucket, teardown := miniotest.NewServer(t)
	t.Cleanup(teardown)
	store := storage.NewS3Store(mc, bucket, 5<<20)
	ctx := context.Background()

	t.Run("get missing returns ErrObjectNotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		require.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("put and get", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "node-1", strings.NewReader("hello world")))
		rc, err := store.Get(ctx, "node-1")
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.Equal(t, "hello world", string(data))
	})

	t.Run("get range", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "node-2", strings.NewReader("0123456789")))
		rsc, err := store.GetRange(ctx, "node-2", 2, 4)
		require.NoError(t, err)
		defer rsc.Close()
		data, err := io.ReadAll(rsc)
		require.NoError(t, err)
		require.Equal(t, "2345", string(data))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "node-1"))
		_, err := store.Get(ctx, "node-1")
		require.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("String", func(t *testing.T) {
		require.Equal(t, "s3("+bucket+")", store.String())
	})

	t.Run("sequential ids land in different shard prefixes", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "1", strings.NewReader("a")))
		require.NoError(t, store.Put(ctx, "2", strings.NewReader("b")))
		objectCh := mc.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true})
		prefixes := map[string]bool{}
		for obj := range objectCh {
			if len(obj.Key) >= 2 {
				prefixes[obj.Key[:2]] = true
			}
		}
		require.Greater(t, len(prefixes), 1)
	})
}
