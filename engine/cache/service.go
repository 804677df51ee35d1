package cache

import "sync"

// CacheService is the key/value memoization facade used by every other
// component. Keys are process-global strings; callers namespace them by
// operation kind and source path (see keys.go). There is no expiry: entries
// live until external eviction, and Add unconditionally overwrites.
type CacheService interface {
	Get(key string) (interface{}, bool)
	Add(key string, value interface{})
}

// InMemoryCacheService is the default CacheService backend. It is safe under
// concurrent Get/Add from multiple scan tasks; every write replaces a freshly
// computed full value, so there are no increment-style races to guard.
type InMemoryCacheService struct {
	mu      sync.RWMutex
	entries map[string]interface{}
}

// NewInMemoryCacheService creates an empty in-memory cache.
func NewInMemoryCacheService() *InMemoryCacheService {
	return &InMemoryCacheService{entries: make(map[string]interface{})}
}

// Get returns the cached value for key, if any.
func (c *InMemoryCacheService) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.entries[key]
	return value, ok
}

// Add stores value under key, overwriting any previous entry.
func (c *InMemoryCacheService) Add(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Len reports the number of cached entries.
func (c *InMemoryCacheService) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
