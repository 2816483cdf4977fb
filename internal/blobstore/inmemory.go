package blobstore

import (
	"context"
	"fmt"
	"sync"
)

// InMemory keeps blobs in a map under mem:// URIs. Used by tests and local
// runs without a bucket.
type InMemory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{blobs: make(map[string][]byte)}
}

func (m *InMemory) Upload(ctx context.Context, objectName string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	uri := "mem://" + objectName
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[uri] = cp
	return uri, nil
}

func (m *InMemory) Fetch(ctx context.Context, uri string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[uri]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", uri)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

var _ Store = (*InMemory)(nil)
