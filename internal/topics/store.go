package topics

import (
	"strings"
	"sync"
)

// Store holds the process-wide current topic. Writes are last-write-
// wins; readers get a snapshot of whatever value was current at the
// moment of the read, which is the accepted consistency level for a
// shared default destination.
type Store struct {
	mu      sync.RWMutex
	current string
}

// NewStore creates an empty current-topic store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the current topic. The id is trimmed; setting an empty
// id clears the store.
func (s *Store) Set(topicID string) string {
	topicID = strings.TrimSpace(topicID)
	s.mu.Lock()
	s.current = topicID
	s.mu.Unlock()
	return topicID
}

// Get returns the current topic id and whether one is set.
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != ""
}
