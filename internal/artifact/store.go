// Package artifact uploads exported dependency graphs to object storage.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("artifact not found")

// Store persists exported graphs.
type Store interface {
	Put(ctx context.Context, key, contentType string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// URL returns a link to the object. Stores without a public address
	// return the key itself.
	URL(ctx context.Context, key string) (string, error)
	Bucket() string
}

// MemoryStore keeps objects in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	types map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string][]byte),
		types: make(map[string]string),
	}
}

func (s *MemoryStore) Put(_ context.Context, key, contentType string, content []byte) error {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return fmt.Errorf("key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), content...)
	s.types[key] = contentType
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[strings.TrimLeft(key, "/")]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) URL(_ context.Context, key string) (string, error) {
	return "memory://" + strings.TrimLeft(key, "/"), nil
}

func (s *MemoryStore) Bucket() string { return "memory" }

// ContentType returns the media type key was stored with.
func (s *MemoryStore) ContentType(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.types[key]
}

// Keys lists stored keys in order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
