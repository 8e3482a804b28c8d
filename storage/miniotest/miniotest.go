// Package miniotest starts a real, in-process MinIO server for tests that
// need an actual S3-compatible backend rather than storage.MemStore.
// Sharded keys, multipart uploads, and range reads behave differently
// enough against a real object store that a mock risks passing on request
// shapes the real service would reject.
package miniotest

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/minio/madmin-go"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	minio "github.com/minio/minio/cmd"
	"github.com/stretchr/testify/require"
)

const testBucket = "betree-test"

func getOpenPort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("failed to get open port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// NewServer starts a MinIO server on a random port and returns a client and
// bucket name to use in tests. The third return value tears the server
// down; callers should defer it or register it with t.Cleanup.
func NewServer(t *testing.T) (*mclient.Client, string, func()) {
	t.Helper()
	ctx := context.Background()
	port, err := getOpenPort()
	require.NoError(t, err)

	accessKeyID := "minioadmin"
	secretAccessKey := "minioadmin"
	addr := fmt.Sprintf("localhost:%d", port)

	madm, err := madmin.New(addr, accessKeyID, secretAccessKey, false)
	require.NoError(t, err)

	tmpdir, err := os.MkdirTemp("", "betree-minio")
	require.NoError(t, err)

	go func() {
		minio.Main([]string{"minio", "server", "--quiet", "--address", addr, tmpdir})
	}()

	start := time.Now()
	for {
		if _, err := madm.ServerInfo(ctx); err == nil {
			break
		}
		if time.Since(start) > 10*time.Second {
			t.Fatal("timeout waiting for minio server to start")
		}
		time.Sleep(100 * time.Millisecond)
	}

	mc, err := mclient.New(addr, &mclient.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: false,
	})
	require.NoError(t, err)
	require.NoError(t, mc.MakeBucket(ctx, testBucket, mclient.MakeBucketOptions{}))

	return mc, testBucket, func() {
		_ = os.RemoveAll(tmpdir)
		// minio.Main calls os.Exit on shutdown; give the test process time
		// to finish before that happens underneath it.
		go func() {
			time.Sleep(5 * time.Second)
			_ = madm.ServiceStop(ctx)
		}()
	}
}
