package service

import (
	"sync"
	"time"
)

// BoardCache keeps the board's lists and labels for a short TTL so that a
// burst of callback taps does not refetch the whole board every time.
type BoardCache struct {
	mu        sync.RWMutex
	lists     []List
	labels    []Label
	fetchedAt time.Time
	ttl       time.Duration
}

func NewBoardCache(ttl time.Duration) *BoardCache {
	return &BoardCache{ttl: ttl}
}

// Get returns the cached lists and labels if the cache is still fresh.
func (c *BoardCache) Get() ([]List, []Label, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.fetchedAt.IsZero() || time.Since(c.fetchedAt) > c.ttl {
		return nil, nil, false
	}
	lists := make([]List, len(c.lists))
	copy(lists, c.lists)
	labels := make([]Label, len(c.labels))
	copy(labels, c.labels)
	return lists, labels, true
}

// Set replaces the cached board state.
func (c *BoardCache) Set(lists []List, labels []Label) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lists = make([]List, len(lists))
	copy(c.lists, lists)
	c.labels = make([]Label, len(labels))
	copy(c.labels, labels)
	c.fetchedAt = time.Now()
}
