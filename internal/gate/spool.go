package gate

import (
	"context"
	"sync"
)

// Spool persists pending messages so a restart does not lose queued
// alerts that are waiting for a send window to open.
type Spool interface {
	// Append stores one newly queued message.
	Append(ctx context.Context, msg Message) error

	// Replace overwrites the stored queue for a destination.
	Replace(ctx context.Context, destination string, msgs []Message) error

	// Load returns all stored queues keyed by destination.
	Load(ctx context.Context) (map[string][]Message, error)
}

// MemorySpool is an in-process Spool. It offers no durability across
// restarts; use the Redis spool in production.
type MemorySpool struct {
	mu     sync.Mutex
	queues map[string][]Message
}

// NewMemorySpool creates an empty in-memory spool.
func NewMemorySpool() *MemorySpool {
	return &MemorySpool{queues: make(map[string][]Message)}
}

// Append stores one newly queued message.
func (s *MemorySpool) Append(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[msg.Destination] = append(s.queues[msg.Destination], msg)
	return nil
}

// Replace overwrites the stored queue for a destination.
func (s *MemorySpool) Replace(ctx context.Context, destination string, msgs []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(msgs) == 0 {
		delete(s.queues, destination)
		return nil
	}
	s.queues[destination] = append([]Message(nil), msgs...)
	return nil
}

// Load returns all stored queues keyed by destination.
func (s *MemorySpool) Load(ctx context.Context) (map[string][]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]Message, len(s.queues))
	for dest, msgs := range s.queues {
		out[dest] = append([]Message(nil), msgs...)
	}
	return out, nil
}

// Ensure MemorySpool implements Spool
var _ Spool = (*MemorySpool)(nil)
