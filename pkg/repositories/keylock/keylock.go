// Package keylock provides per-key mutual exclusion for the in-memory repositories
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Set hands out one mutex per key. Entries are dropped once no goroutine holds or waits on them.
type Set struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty lock set
func New() *Set {
	return &Set{entries: make(map[string]*entry)}
}

// Lock blocks until the key is held by the caller and returns the release function
func (s *Set) Lock(key string) func() {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		s.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(s.entries, key)
		}
		s.mu.Unlock()
	}
}
