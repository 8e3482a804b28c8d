package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/wkalt/betree/util"
	"golang.org/x/exp/maps"
)

/*
MemStore is an in-memory storage provider backed by a map. It is only
suitable for tests and the in-process bench harness; nothing written to it
survives process exit.
*/

////////////////////////////////////////////////////////////////////////////////

// MemStore is an in-memory store.
type MemStore struct {
	data map[string][]byte
	mtx  sync.RWMutex
}

// NewMemStore returns a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[string][]byte),
	}
}

// Put stores an object in the store, replacing any existing data for id.
func (m *MemStore) Put(_ context.Context, id string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.data[id] = data
	return nil
}

// Get retrieves an object from the store.
func (m *MemStore) Get(_ context.Context, id string) (io.ReadCloser, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	data, ok := m.data[id]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// GetRange retrieves a range of bytes from an object in the store.
func (m *MemStore) GetRange(_ context.Context, id string, offset int, length int) (io.ReadSeekCloser, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	data, ok := m.data[id]
	if !ok {
		return nil, ErrObjectNotFound
	}
	if offset < 0 || length < 0 || offset+length > len(data) {
		return nil, io.ErrUnexpectedEOF
	}
	return util.NewReadSeekNopCloser(bytes.NewReader(data[offset : offset+length])), nil
}

// Delete removes an object from the store.
func (m *MemStore) Delete(_ context.Context, id string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	delete(m.data, id)
	return nil
}

// Keys returns the ids of every object currently held, in no particular
// order. Debug/inspection tooling only; real backends have no cheap
// equivalent (an S3 bucket listing is neither free nor guaranteed
// consistent), so this is not part of the Provider interface.
func (m *MemStore) Keys() []string {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return maps.Keys(m.data)
}

func (m *MemStore) String() string {
	return "memory"
}
