package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a bounded cache that evicts the least recently used locator once
// it holds size entries.
type LRU struct {
	c *lru.Cache[string, []byte]
}

// NewLRU creates an LRU cache holding at most size entries.
func NewLRU(size int) (*LRU, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache: %w", err)
	}
	return &LRU{c: c}, nil
}

func (l *LRU) Get(locator string) ([]byte, bool) {
	return l.c.Get(locator)
}

func (l *LRU) Set(locator string, data []byte) {
	l.c.Add(locator, data)
}

// Len returns the number of cached entries.
func (l *LRU) Len() int { return l.c.Len() }

// Purge drops every entry.
func (l *LRU) Purge() { l.c.Purge() }
