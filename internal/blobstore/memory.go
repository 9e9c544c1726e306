package blobstore

import (
	"context"
	"fmt"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

type Blob struct {
	Data        []byte
	ContentType string
}

type MemoryStore struct {
	baseURL string
	mutex   sync.RWMutex
	blobs   map[string]Blob
	// PutErr, when set, is returned by every Put call
	PutErr error
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: baseURL,
		blobs:   make(map[string]Blob),
	}
}

func (ms *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if ms.PutErr != nil {
		return "", ms.PutErr
	}
	if !validKey(key) {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}

	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	ms.blobs[key] = Blob{
		Data:        append([]byte(nil), data...),
		ContentType: contentType,
	}
	return joinURL(ms.baseURL, key), nil
}

func (ms *MemoryStore) Get(key string) (Blob, bool) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()
	b, ok := ms.blobs[key]
	return b, ok
}
