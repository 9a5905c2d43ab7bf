package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/omarluq/storefront/internal/cache"
)

// CacheDuration is how long catalog reads stay cached.
const CacheDuration = 30 * time.Second

// CachedService decorates a Service with the shared memory cache. The
// storefront pages read the catalog API through it.
type CachedService struct {
	inner Service
	cache cache.Cache
	ttl   time.Duration
}

var _ Service = (*CachedService)(nil)

func NewCachedService(inner Service, c cache.Cache) *CachedService {
	return &CachedService{inner: inner, cache: c, ttl: CacheDuration}
}

func optKey(o mo.Option[int]) string {
	if v, ok := o.Get(); ok {
		return fmt.Sprint(v)
	}
	return "all"
}

func (s *CachedService) Items(ctx context.Context, f Filter) (ItemsPage, error) {
	key := fmt.Sprintf("catalog:items:%d:%d:%s:%s", f.PageIndex, f.PageSize, optKey(f.BrandID), optKey(f.TypeID))
	return cache.GetOrLoad(ctx, s.cache, key, s.ttl, func(ctx context.Context) (ItemsPage, error) {
		return s.inner.Items(ctx, f)
	})
}

func (s *CachedService) Item(ctx context.Context, id int) (Item, error) {
	return cache.GetOrLoad(ctx, s.cache, fmt.Sprintf("catalog:item:%d", id), s.ttl,
		func(ctx context.Context) (Item, error) { return s.inner.Item(ctx, id) })
}

func (s *CachedService) Brands(ctx context.Context) ([]Brand, error) {
	return cache.GetOrLoad(ctx, s.cache, "catalog:brands", s.ttl, s.inner.Brands)
}

func (s *CachedService) Types(ctx context.Context) ([]Type, error) {
	return cache.GetOrLoad(ctx, s.cache, "catalog:types", s.ttl, s.inner.Types)
}
