// Package cache provides resource caches for the fetcher. Every cache maps
// a locator to the exact bytes that were downloaded for it and is safe for
// concurrent use.
package cache

import "sync"

// Memory is an unbounded in-process cache. Get returns the stored slice
// itself, so callers must treat payloads as read-only.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory creates an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Get(locator string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.entries[locator]
	return data, ok
}

func (m *Memory) Set(locator string, data []byte) {
	m.mu.Lock()
	m.entries[locator] = data
	m.mu.Unlock()
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Purge drops every entry.
func (m *Memory) Purge() {
	m.mu.Lock()
	m.entries = make(map[string][]byte)
	m.mu.Unlock()
}
