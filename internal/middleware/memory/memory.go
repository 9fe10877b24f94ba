// Package memory is an in-memory ttl cache.
package memory

import (
	"sync"
	"time"
)

type item struct {
	content []byte
	expires time.Time
}

// Storage keeps byte slices until they expire.
type Storage struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

// NewStorage returns empty storage.
func NewStorage() *Storage {
	return &Storage{
		items: map[string]item{},
		now:   time.Now,
	}
}

// Get returns content by key or nil if it is absent or expired.
func (s *Storage) Get(key string) []byte {
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil
	}

	if !s.now().Before(v.expires) {
		s.mu.Lock()
		if v, ok := s.items[key]; ok && !s.now().Before(v.expires) {
			delete(s.items, key)
		}
		s.mu.Unlock()

		return nil
	}

	return v.content
}

// Set puts content by key for duration.
func (s *Storage) Set(key string, content []byte, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = item{
		content: content,
		expires: s.now().Add(duration),
	}
}
