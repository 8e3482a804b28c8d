package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wkalt/betree/util"
)

/*
FileStore stores each object as a single file in a local directory. It is
meant for local development and the bench/inspect CLI, not for concurrent
production use - there is no locking beyond what the filesystem gives us for
free.
*/

////////////////////////////////////////////////////////////////////////////////

// FileStore is a storage provider backed by a local directory, one file per
// object id.
type FileStore struct {
	root string
}

// NewFileStore returns a FileStore rooted at dir. Put creates dir and any
// subdirectories a slash-separated object id names.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.root, id)
}

// Put stores an object in the directory, overwriting any existing file.
func (f *FileStore) Put(_ context.Context, id string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path(id)), 0o700); err != nil {
		return fmt.Errorf("write failure: %w", err)
	}
	if err := os.WriteFile(f.path(id), data, 0o600); err != nil {
		return fmt.Errorf("write failure: %w", err)
	}
	return nil
}

// Get retrieves an object from the directory.
func (f *FileStore) Get(_ context.Context, id string) (io.ReadCloser, error) {
	file, err := os.Open(f.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open failure: %w", err)
	}
	return file, nil
}

// GetRange retrieves a range of bytes from an object in the directory.
func (f *FileStore) GetRange(_ context.Context, id string, offset int, length int) (io.ReadSeekCloser, error) {
	file, err := os.Open(f.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open failure: %w", err)
	}
	defer file.Close()
	if _, err := file.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek failure: %w", err)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(file, buf); err != nil {
		return nil, fmt.Errorf("read failure: %w", err)
	}
	return util.NewReadSeekNopCloser(bytes.NewReader(buf)), nil
}

// Delete removes an object from the directory. Deleting an absent object is
// not an error, for conformance with the S3 API.
func (f *FileStore) Delete(_ context.Context, id string) error {
	if err := os.Remove(f.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("deletion failure: %w", err)
	}
	return nil
}

func (f *FileStore) String() string {
	return fmt.Sprintf("file(%s)", f.root)
}
