// Package prefs persists small integer preferences such as the brightness
// index. Loads happen once at start-up; saves happen off the render path.
package prefs

import "sync"

// Store is a key/value store of integers.
type Store interface {
	// LoadInt returns ok=false when the key has never been saved.
	LoadInt(key string) (v int, ok bool, err error)
	SaveInt(key string, v int) error
}

// MemStore keeps values in memory only.
type MemStore struct {
	mu sync.Mutex
	m  map[string]int
}

func NewMemStore() *MemStore { return &MemStore{m: map[string]int{}} }

func (s *MemStore) LoadInt(key string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemStore) SaveInt(key string, v int) error {
	s.mu.Lock()
	s.m[key] = v
	s.mu.Unlock()
	return nil
}
