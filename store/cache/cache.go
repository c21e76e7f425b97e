package cache

import (
	"context"
	"sync"
	"time"
)

// Config holds the configuration for a Cache.
type Config struct {
	// DefaultTTL is the expiration applied by Set.
	DefaultTTL time.Duration
	// CleanupInterval is how often the janitor sweeps expired entries.
	// Zero disables the janitor; entries then expire lazily on Get.
	CleanupInterval time.Duration
	// MaxItems bounds the cache size; the entry closest to expiry is
	// evicted when the bound is hit. Zero means unbounded.
	MaxItems int
	// OnEviction, when set, is called for every expired or evicted entry.
	OnEviction func(key string, value any)
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is an in-memory TTL cache safe for concurrent use.
type Cache struct {
	config Config

	mu      sync.RWMutex
	entries map[string]*entry

	done chan struct{}
	once sync.Once
}

// New creates a cache and starts its cleanup janitor.
func New(config Config) *Cache {
	c := &Cache{
		config:  config,
		entries: make(map[string]*entry),
		done:    make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go c.janitor()
	}
	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// replaced the entry.
		if cur, still := c.entries[key]; still && cur == e {
			delete(c.entries, key)
			c.evicted(key, e.value)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.SetWithTTL(ctx, key, value, c.config.DefaultTTL)
}

// SetWithTTL stores value under key with an explicit TTL.
func (c *Cache) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config.MaxItems > 0 && len(c.entries) >= c.config.MaxItems {
		if _, exists := c.entries[key]; !exists {
			c.evictOldestLocked()
		}
	}
	c.entries[key] = &entry{value: value, expiresAt: time.Now().Add(ttl)}
}

// Delete removes key from the cache.
func (c *Cache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries.
func (c *Cache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Size returns the number of entries, including not-yet-swept expired ones.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the janitor. The cache stays usable; entries just stop being
// swept in the background.
func (c *Cache) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Cache) janitor() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			c.evicted(key, e.value)
		}
	}
}

// evictOldestLocked drops the entry closest to expiry. Caller holds mu.
func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey = key
			oldest = e.expiresAt
		}
	}
	if oldestKey != "" {
		e := c.entries[oldestKey]
		delete(c.entries, oldestKey)
		c.evicted(oldestKey, e.value)
	}
}

func (c *Cache) evicted(key string, value any) {
	if c.config.OnEviction != nil {
		c.config.OnEviction(key, value)
	}
}
