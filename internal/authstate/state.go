// Package authstate holds short-lived one-time tokens for the OAuth consent
// flow. Tokens expire after a fixed TTL and are consumed on first read. Two
// implementations exist: an in-memory expiring map that owns its purge
// goroutine, and a Redis-backed store for multi-instance deployments.
package authstate

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a state token stays valid.
const DefaultTTL = 10 * time.Minute

// Store is the state-token contract.
type Store interface {
	// Put records a token with its associated value.
	Put(ctx context.Context, token, value string) error

	// Take consumes a token, returning its value and whether it was
	// still valid. A token can be taken at most once.
	Take(ctx context.Context, token string) (string, bool, error)
}

type entry struct {
	value    string
	storedAt time.Time
}

// Memory is an expiring map with an explicitly owned purge task. Close stops
// the purge goroutine; there is no free-running global timer.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once

	now func() time.Time // overridable in tests
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go m.purgeLoop()
	return m
}

func (m *Memory) Put(_ context.Context, token, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[token] = entry{value: value, storedAt: m.now()}
	return nil
}

func (m *Memory) Take(_ context.Context, token string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[token]
	if !ok {
		return "", false, nil
	}
	delete(m.entries, token)

	if m.now().Sub(e.storedAt) > m.ttl {
		return "", false, nil
	}
	return e.value, true, nil
}

// Close stops the purge goroutine. Safe to call more than once.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.stop) })
}

// purgeLoop evicts expired entries so abandoned flows don't accumulate.
// Take also checks expiry, so the loop is purely about memory pressure.
func (m *Memory) purgeLoop() {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.purge()
		}
	}
}

func (m *Memory) purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.ttl)
	for token, e := range m.entries {
		if e.storedAt.Before(cutoff) {
			delete(m.entries, token)
		}
	}
}
