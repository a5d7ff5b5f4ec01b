package service

import (
	"context"

	"github.com/boddenberg/nextcrm-core/internal/domain"
	"github.com/boddenberg/nextcrm-core/internal/infra/observability"
	"github.com/boddenberg/nextcrm-core/internal/port"
)

const tenantCacheName = "tenant"

// TenantLookup resolves tenant slugs through a TTL cache. Misses are not
// cached, so a freshly bootstrapped tenant is visible immediately.
type TenantLookup struct {
	store   port.TenantStore
	cache   port.Cache[domain.Tenant]
	metrics *observability.Metrics
}

// NewTenantLookup creates a lookup over store.
func NewTenantLookup(store port.TenantStore, cache port.Cache[domain.Tenant], metrics *observability.Metrics) *TenantLookup {
	return &TenantLookup{store: store, cache: cache, metrics: metrics}
}

// Resolve returns the tenant for slug or *domain.ErrNotFound.
func (l *TenantLookup) Resolve(ctx context.Context, slug string) (*domain.Tenant, error) {
	if t, ok := l.cache.Get(ctx, slug); ok {
		l.metrics.IncrCacheHit(tenantCacheName)
		return &t, nil
	}
	l.metrics.IncrCacheMiss(tenantCacheName)

	t, err := l.store.GetTenantBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	l.cache.Set(ctx, slug, *t)
	return t, nil
}
