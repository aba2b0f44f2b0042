package pdf

import (
	"context"
	"sync"
)

// InMemoryStore implements ObjectStore with a map. It backs tests and
// local development runs without S3 credentials.
type InMemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewInMemoryStore creates an empty in-memory object store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{objects: make(map[string][]byte)}
}

var _ ObjectStore = (*InMemoryStore)(nil)

// PutObject stores a copy of body under key
func (s *InMemoryStore) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), body...)
	return nil
}

// GetObject retrieves the object stored under key
func (s *InMemoryStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, ok := s.objects[key]
	if !ok {
		return nil, ErrFileNotFound
	}
	return append([]byte(nil), body...), nil
}

// Len reports the number of stored objects
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
