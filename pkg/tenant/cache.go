package tenant

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// CachingDirectory wraps a Directory with a small expirable LRU so that
// the hot path of request resolution does not hit the database on every
// request. Only successful lookups are cached; errors, including
// ErrTenantNotFound, always pass through so a newly provisioned tenant
// becomes visible as soon as its row lands.
type CachingDirectory struct {
	inner Directory
	cache *lru.LRU[string, *Tenant]
}

// NewCachingDirectory creates a caching wrapper over a directory.
func NewCachingDirectory(inner Directory, maxEntries int, ttl time.Duration) *CachingDirectory {
	if maxEntries < 16 {
		maxEntries = 16
	}
	return &CachingDirectory{
		inner: inner,
		cache: lru.NewLRU[string, *Tenant](maxEntries, nil, ttl),
	}
}

// TenantBySubdomain returns the tenant owning a subdomain, from cache when
// fresh.
func (c *CachingDirectory) TenantBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	if t, ok := c.cache.Get(subdomain); ok {
		return t, nil
	}

	t, err := c.inner.TenantBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}

	c.cache.Add(subdomain, t)
	return t, nil
}

// Invalidate drops a single subdomain from the cache. Call it after any
// mutation of the tenant so status changes take effect within the request
// that made them, not a TTL later.
func (c *CachingDirectory) Invalidate(subdomain string) {
	c.cache.Remove(subdomain)
}

// Purge clears the entire cache.
func (c *CachingDirectory) Purge() {
	c.cache.Purge()
}
