package media

import (
	"context"
	"io"
	"sync"
)

// MemoryStore is an in-memory Store for tests and DB-less dev mode.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Upload(ctx context.Context, filename, contentType string, body io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return Object{}, err
	}

	key := NewStorageKey(filename)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data

	return Object{URL: "memory://" + key, ID: key}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[id]; !ok {
		return ErrNotFound
	}
	delete(s.objects, id)
	return nil
}

// Len reports the number of stored objects (test helper).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
