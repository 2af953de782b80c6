package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryObjectStore keeps uploads in process. Used when no bucket is configured.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string][]byte)}
}

func (m *MemoryObjectStore) Put(_ context.Context, folder, filename, _ string, body []byte) (*StoredObject, error) {
	key := objectKey(folder, filename, time.Now().UTC())

	m.mu.Lock()
	m.objects[key] = append([]byte(nil), body...)
	m.mu.Unlock()

	return &StoredObject{Key: key, URL: "memory://" + key, DownloadURL: "memory://" + key}, nil
}

// Get returns a stored object body.
func (m *MemoryObjectStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.objects[key]
	return body, ok
}
