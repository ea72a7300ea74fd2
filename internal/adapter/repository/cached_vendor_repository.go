package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"vendora/internal/domain/entity"
	"vendora/internal/domain/repository"
	"vendora/pkg/logger"
)

// cachedVendorRepository caches vendor lookups in redis so deep-link
// resolution does not hit firestore for every navigation. Cache failures are
// logged and fall through to the inner repository; the cache is never
// authoritative.
type cachedVendorRepository struct {
	inner repository.VendorRepository
	cache *redis.Client
	ttl   time.Duration
}

func NewCachedVendorRepository(inner repository.VendorRepository, cache *redis.Client, ttl time.Duration) repository.VendorRepository {
	return &cachedVendorRepository{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

func (r *cachedVendorRepository) GetByID(ctx context.Context, vendorID string) (*entity.Vendor, error) {
	key := "vendor:" + vendorID

	if cached, err := r.cache.Get(ctx, key).Result(); err == nil {
		var vendor entity.Vendor
		if err := json.Unmarshal([]byte(cached), &vendor); err == nil {
			return &vendor, nil
		}
		logger.Warn("Dropping unparsable cache entry for vendor %s", vendorID)
		r.cache.Del(ctx, key)
	} else if err != redis.Nil {
		logger.Warn("Vendor cache read for %s failed: %v", vendorID, err)
	}

	vendor, err := r.inner.GetByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(vendor); err == nil {
		if err := r.cache.Set(ctx, key, payload, r.ttl).Err(); err != nil {
			logger.Warn("Vendor cache write for %s failed: %v", vendorID, err)
		}
	}
	return vendor, nil
}
