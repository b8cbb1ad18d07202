package tenant

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotterdam-cs/portal-connect/internal/cache"
	"github.com/rotterdam-cs/portal-connect/internal/observability/logger"
)

// CachedStore decora un Store con cache (memory o redis) por tenant.
//
// Los errores del store subyacente NO se cachean: un lookup fallido vuelve a
// intentar en el próximo request (y el fail-open de policy queda acotado al
// incidente real).
type CachedStore struct {
	Inner Store
	Cache cache.Cache
	TTL   time.Duration
}

func NewCachedStore(inner Store, c cache.Cache, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedStore{Inner: inner, Cache: c, TTL: ttl}
}

func cacheKey(tenantID string) string { return "tenant:settings:" + tenantID }

func (s *CachedStore) Settings(ctx context.Context, tenantID string) (*Settings, error) {
	if b, ok := s.Cache.Get(cacheKey(tenantID)); ok {
		var out Settings
		if err := json.Unmarshal(b, &out); err == nil {
			return &out, nil
		}
		// Entrada corrupta: descartar y recargar.
		s.Cache.Delete(cacheKey(tenantID))
	}

	out, err := s.Inner.Settings(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(out); err == nil {
		s.Cache.Set(cacheKey(tenantID), b, s.TTL)
	} else {
		logger.From(ctx).Warn("tenant settings cache marshal failed",
			logger.Component("tenant.cache"), logger.TenantID(tenantID), logger.Err(err))
	}
	return out, nil
}

// Invalidate fuerza recarga en el próximo acceso.
func (s *CachedStore) Invalidate(tenantID string) {
	s.Cache.Delete(cacheKey(tenantID))
}
