// Package memory keeps archived reports and appended rows in memory for
// development runs and tests.
package memory

import (
	"context"
	"errors"
	"sync"
)

// BlobStore stores artifacts in-memory and returns pseudo URIs.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
	// Err, when set, fails every PutObject.
	Err error
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		data: make(map[string][]byte),
	}
}

// PutObject persists a copy of the content and returns a URI.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	if path == "" {
		return "", errors.New("path is required")
	}
	s.data[path] = append([]byte(nil), data...)
	return s.URL(path), nil
}

// URL returns the pseudo URI for path.
func (s *BlobStore) URL(path string) string {
	return "memory://" + path
}

// Object returns a stored object.
func (s *BlobStore) Object(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[path]
	return data, ok
}

// Paths lists every stored object path.
func (s *BlobStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for p := range s.data {
		out = append(out, p)
	}
	return out
}
