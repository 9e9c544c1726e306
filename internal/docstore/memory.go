package docstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	mutex sync.RWMutex
	docs  map[Path][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[Path][]byte),
	}
}

func (s *MemoryStore) Set(_ context.Context, path Path, data []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.docs[path] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, path Path) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	data, ok := s.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Delete(_ context.Context, path Path) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.docs, path)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([][]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var paths []Path
	keys := make(map[Path]time.Time)
	for p, data := range s.docs {
		if p.Parent() != q.Collection {
			continue
		}
		if q.OrderBy != "" {
			// documents without the order field are left out of ordered queries
			t, ok := orderKey(data, q.OrderBy)
			if !ok {
				continue
			}
			keys[p] = t
		}
		paths = append(paths, p)
	}

	sort.Slice(paths, func(i, j int) bool {
		ti, tj := keys[paths[i]], keys[paths[j]]
		switch {
		case q.OrderBy == "" || ti.Equal(tj):
			return paths[i] < paths[j]
		case q.Descending:
			return ti.After(tj)
		default:
			return ti.Before(tj)
		}
	})

	docs := make([][]byte, 0, len(paths))
	for _, p := range paths {
		docs = append(docs, append([]byte(nil), s.docs[p]...))
	}
	return docs, nil
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.docs)
}
