package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/spaolacci/murmur3"
)

/*
S3Store is a storage provider backed by S3-compatible object storage, via
the minio client library (which works against AWS S3 as well as MinIO and
other S3-compatible services). Node ids are minted sequentially by the
tree's id allocator, which would otherwise land every write in the same
few S3 partitions in ascending-key order - a well-known hot-partitioning
problem for object stores that shard by key prefix. shardKey spreads
writes across 256 prefixes derived from a hash of the id, the same fix
S3-backed systems apply by prepending a hash or reversed-id prefix to an
otherwise sequential key.
*/

////////////////////////////////////////////////////////////////////////////////

const minioErrObjectNotExist = "The specified key does not exist."

func shardKey(id string) string {
	sum := murmur3.Sum32([]byte(id))
	return fmt.Sprintf("%02x/%s", byte(sum), id)
}

// S3Store is an S3-compatible storage provider.
type S3Store struct {
	mc       *minio.Client
	bucket   string
	partsize uint64
}

// NewS3Store returns an S3Store writing to bucket via mc, using the given
// multipart upload part size in bytes.
func NewS3Store(mc *minio.Client, bucket string, partsizeBytes uint64) *S3Store {
	return &S3Store{
		mc:       mc,
		bucket:   bucket,
		partsize: partsizeBytes,
	}
}

// Put stores the data in the object store.
func (s *S3Store) Put(ctx context.Context, id string, r io.Reader) error {
	_, err := s.mc.PutObject(
		ctx,
		s.bucket,
		shardKey(id),
		r,
		-1,
		minio.PutObjectOptions{PartSize: s.partsize},
	)
	if err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

// Get retrieves an object from the object store.
func (s *S3Store) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	obj, err := s.mc.GetObject(ctx, s.bucket, shardKey(id), minio.GetObjectOptions{})
	if err != nil {
		if err.Error() == minioErrObjectNotExist {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	// GetObject defers the request until first use, so a missing key only
	// surfaces here, on Stat.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if err.Error() == minioErrObjectNotExist {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return obj, nil
}

// GetRange retrieves a range of bytes from the object store.
func (s *S3Store) GetRange(ctx context.Context, id string, offset int, length int) (io.ReadSeekCloser, error) {
	req := minio.GetObjectOptions{}
	if err := req.SetRange(int64(offset), int64(offset+length-1)); err != nil {
		return nil, fmt.Errorf("failed to set range: %w", err)
	}
	obj, err := s.mc.GetObject(ctx, s.bucket, shardKey(id), req)
	if err != nil {
		if err.Error() == minioErrObjectNotExist {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return obj, nil
}

// Delete removes an object from the object store.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if err := s.mc.RemoveObject(ctx, s.bucket, shardKey(id), minio.RemoveObjectOptions{}); err != nil {
		if err.Error() == minioErrObjectNotExist {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

func (s *S3Store) String() string {
	return fmt.Sprintf("s3(%s)", s.bucket)
}
