package cooldown

import (
	"sync"
	"time"
)

// Store holds the last time each scope key fired. It lives only as long as
// the process does.
type Store struct {
	mu      sync.Mutex
	records map[string]time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		records: make(map[string]time.Time),
	}
}

// LastFire returns the last recorded fire time for key
func (s *Store) LastFire(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.records[key]
	return t, ok
}

// SetLastFire records t as the last fire time for key
func (s *Store) SetLastFire(key string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = t
}

// Len returns the number of tracked keys
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// update runs fn against the record for key while holding the lock. When fn
// reports true, the returned time replaces the record.
func (s *Store) update(key string, fn func(last time.Time, ok bool) (time.Time, bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.records[key]
	if next, write := fn(last, ok); write {
		s.records[key] = next
	}
}
