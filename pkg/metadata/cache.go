package metadata

import (
	"context"
	"sync"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

// CachedCatalog wraps a Catalog with a TTL cache. Misses are not cached.
type CachedCatalog struct {
	catalog Catalog
	ttl     time.Duration

	mu         sync.RWMutex
	tables     map[string]*cacheEntry[*Table]
	procedures map[string]*cacheEntry[*Procedure]
}

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e *cacheEntry[T]) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// NewCachedCatalog creates a caching wrapper around catalog.
func NewCachedCatalog(catalog Catalog, ttl time.Duration) *CachedCatalog {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	return &CachedCatalog{
		catalog:    catalog,
		ttl:        ttl,
		tables:     make(map[string]*cacheEntry[*Table]),
		procedures: make(map[string]*cacheEntry[*Procedure]),
	}
}

// Table returns a table, consulting the cache first.
func (c *CachedCatalog) Table(ctx context.Context, fullName string) (*Table, error) {
	k := key(fullName)

	c.mu.RLock()
	if entry, ok := c.tables[k]; ok && !entry.isExpired() {
		c.mu.RUnlock()
		return entry.value, nil
	}
	c.mu.RUnlock()

	t, err := c.catalog.Table(ctx, fullName)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tables[k] = &cacheEntry[*Table]{value: t, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return t, nil
}

// Procedure returns a procedure, consulting the cache first.
func (c *CachedCatalog) Procedure(ctx context.Context, fullName string) (*Procedure, error) {
	k := key(fullName)

	c.mu.RLock()
	if entry, ok := c.procedures[k]; ok && !entry.isExpired() {
		c.mu.RUnlock()
		return entry.value, nil
	}
	c.mu.RUnlock()

	p, err := c.catalog.Procedure(ctx, fullName)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.procedures[k] = &cacheEntry[*Procedure]{value: p, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return p, nil
}

// Invalidate drops every cached entry.
func (c *CachedCatalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = make(map[string]*cacheEntry[*Table])
	c.procedures = make(map[string]*cacheEntry[*Procedure])
}

// Verify interface compliance.
var _ Catalog = (*CachedCatalog)(nil)
