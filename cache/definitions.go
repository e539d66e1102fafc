package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/pwchange/domain"
)

// CachedDefinitionRegistry wraps a DefinitionRegistry with a TTL cache.
// Definitions are looked up on every login and every attribute event but
// change only during provisioning, so short-lived caching takes the
// registry off the hot path. Writes pass through and invalidate.
type CachedDefinitionRegistry struct {
	inner domain.DefinitionRegistry
	cache *ttlcache.Cache[string, *domain.AttributeDefinition]
}

// NewCachedDefinitionRegistry creates a caching decorator around inner with
// the given entry TTL.
func NewCachedDefinitionRegistry(inner domain.DefinitionRegistry, ttl time.Duration) *CachedDefinitionRegistry {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.AttributeDefinition](ttl),
		ttlcache.WithDisableTouchOnHit[string, *domain.AttributeDefinition](),
	)

	// Start the cleanup process
	go cache.Start()

	return &CachedDefinitionRegistry{
		inner: inner,
		cache: cache,
	}
}

// GetDefinitionByName returns the cached definition, falling through to the
// inner registry on a miss. Negative results are not cached so a freshly
// provisioned definition becomes visible immediately.
func (r *CachedDefinitionRegistry) GetDefinitionByName(ctx context.Context, name string) (*domain.AttributeDefinition, error) {
	if item := r.cache.Get(name); item != nil {
		return item.Value(), nil
	}

	def, err := r.inner.GetDefinitionByName(ctx, name)
	if err != nil {
		return nil, err
	}
	r.cache.Set(name, def, ttlcache.DefaultTTL)
	return def, nil
}

// CreateDefinition passes through to the inner registry and invalidates the
// cached entry.
func (r *CachedDefinitionRegistry) CreateDefinition(ctx context.Context, def *domain.AttributeDefinition) error {
	if err := r.inner.CreateDefinition(ctx, def); err != nil {
		return err
	}
	r.cache.Delete(def.Name)
	return nil
}

// DeleteDefinition passes through to the inner registry and invalidates the
// cached entry.
func (r *CachedDefinitionRegistry) DeleteDefinition(ctx context.Context, name string) error {
	if err := r.inner.DeleteDefinition(ctx, name); err != nil {
		return err
	}
	r.cache.Delete(name)
	return nil
}

// Close stops the cleanup goroutine.
func (r *CachedDefinitionRegistry) Close() error {
	r.cache.Stop()

	return nil
}

var _ domain.DefinitionRegistry = (*CachedDefinitionRegistry)(nil)
