package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Cache with lazy expiry and a periodic janitor.
type Memory struct {
	mu           sync.Mutex
	entries      map[string]memoryEntry
	cleanupEvery time.Duration
}

// MemoryOption configures a Memory cache
type MemoryOption func(*Memory)

// WithCleanupEvery sets the janitor interval
func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(m *Memory) { m.cleanupEvery = d }
}

// NewMemory creates an in-process cache
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries:      make(map[string]memoryEntry),
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Cache.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if now.After(ent.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return ent.value, true, nil
}

// Set implements Cache.
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Cleanup drops expired entries.
func (m *Memory) Cleanup() {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, ent := range m.entries {
		if now.After(ent.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// StartJanitor starts a goroutine that cleans expired entries periodically.
// Stop it by cancelling the context.
func (m *Memory) StartJanitor(ctx context.Context) {
	if m.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(m.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Cleanup()
			}
		}
	}()
}
