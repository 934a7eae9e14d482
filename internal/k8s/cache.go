package k8s

import (
	"sync"
	"time"
)

// PodInfo contains resolved runtime pod information for a workspace.
type PodInfo struct {
	Name      string
	Namespace string
	Phase     string
	Node      string
	StartedAt time.Time
}

// CacheEntry represents a cached pod lookup with expiration.
type CacheEntry struct {
	Info      *PodInfo
	ExpiresAt time.Time
}

// Cache provides thread-safe caching of workspace→pod lookups. Pods churn on
// restart, so the TTL stays short.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	ttl     time.Duration
}

// NewCache creates a new cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*CacheEntry),
		ttl:     ttl,
	}
}

// Get retrieves a value from the cache.
func (c *Cache) Get(workspace string) *PodInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[workspace]
	if !exists {
		return nil
	}
	if time.Now().After(entry.ExpiresAt) {
		return nil
	}
	return entry.Info
}

// Set stores a value in the cache.
func (c *Cache) Set(workspace string, info *PodInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[workspace] = &CacheEntry{
		Info:      info,
		ExpiresAt: time.Now().Add(c.ttl),
	}
}

// Invalidate drops a single workspace entry. Used after operations that
// restart the pod.
func (c *Cache) Invalidate(workspace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, workspace)
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CacheEntry)
}

// Size returns the current number of entries in the cache.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
