package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	windowStart  time.Time
	lastActionAt time.Time
	count        int
}

// MemoryStore is a single-process Store used in tests and local development.
// It applies the same window semantics as PostgresStore under a mutex.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
}

// NewMemoryStore creates an in-memory rate limit store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*memoryRecord)}
}

// Take implements Store.
func (s *MemoryStore) Take(ctx context.Context, identifier string, kind ActionKind, rule Rule, now time.Time) (bool, error) {
	key := identifier + "\x00" + string(kind)
	cutoff := now.Add(-rule.Window)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.lastActionAt.Before(cutoff) {
		s.records[key] = &memoryRecord{windowStart: now, lastActionAt: now, count: 1}
		return true, nil
	}

	if rec.count >= rule.Threshold {
		// Rejected attempts are not recorded.
		return false, nil
	}

	rec.count++
	rec.lastActionAt = now
	return true, nil
}
