package feed

import (
	"sync"

	"abc-inventory-monitor/internal/model"
)

// SnapshotStore holds the previous and current validated snapshots. The
// pair is replaced atomically on each successful validation cycle and the
// snapshots themselves are never mutated in place.
type SnapshotStore struct {
	mu       sync.RWMutex
	previous *model.Snapshot
	current  *model.Snapshot
}

// NewSnapshotStore creates an empty snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Replace installs next as the current snapshot; the old current becomes
// the previous snapshot used for delta computation.
func (s *SnapshotStore) Replace(next *model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previous = s.current
	s.current = next
}

// Current returns the most recently validated snapshot, or nil before the
// first successful cycle.
func (s *SnapshotStore) Current() *model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Previous returns the prior validated snapshot, or nil.
func (s *SnapshotStore) Previous() *model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.previous
}

// Pair returns both snapshots consistently.
func (s *SnapshotStore) Pair() (current, previous *model.Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.previous
}

// Reset drops both snapshots.
func (s *SnapshotStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previous = nil
	s.current = nil
}
