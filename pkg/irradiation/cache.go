package irradiation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/heliometric/heliometric/pkg/types"
)

// Cache stores resolved profiles. A miss is (zero, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (types.IrradiationProfile, bool, error)
	Set(ctx context.Context, key string, p types.IrradiationProfile) error
}

// CacheKey builds the key for a request resolved against the given source.
// Coordinates are rounded to 2 decimals (about 1 km).
func CacheKey(source types.IrradiationSource, req Request) string {
	return fmt.Sprintf(
		"irradiation:%s:%.2f:%.2f:%g:%g",
		source,
		round2(req.Location.Latitude),
		round2(req.Location.Longitude),
		req.Tilt,
		req.Azimuth,
	)
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	// avoid distinct keys for -0.00 and 0.00
	if r == 0 {
		return 0
	}
	return r
}

type memoryEntry struct {
	profile   types.IrradiationProfile
	expiresAt time.Time
}

// memoryCache is a TTL map local to the process.
type memoryCache struct {
	mu    sync.RWMutex
	store map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryCache returns an in-process cache. Entries expire after ttl.
func NewMemoryCache(ttl time.Duration) Cache {
	return &memoryCache{
		store: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *memoryCache) Get(_ context.Context, key string) (types.IrradiationProfile, bool, error) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return types.IrradiationProfile{}, false, nil
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.store, key)
		c.mu.Unlock()
		return types.IrradiationProfile{}, false, nil
	}
	return e.profile, true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, p types.IrradiationProfile) error {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	// sweep expired entries so the map doesn't grow without bound
	for k, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, k)
		}
	}
	c.store[key] = memoryEntry{
		profile:   p,
		expiresAt: now.Add(c.ttl),
	}
	return nil
}

// redisCache stores profiles as JSON values with a TTL.
type redisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache returns a cache backed by redis.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) Cache {
	return &redisCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *redisCache) Get(ctx context.Context, key string) (types.IrradiationProfile, bool, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.IrradiationProfile{}, false, nil
	}
	if err != nil {
		return types.IrradiationProfile{}, false, fmt.Errorf("failed to get %s from redis: %w", key, err)
	}
	var p types.IrradiationProfile
	if err := json.Unmarshal(b, &p); err != nil {
		return types.IrradiationProfile{}, false, fmt.Errorf("failed to decode cached profile %s: %w", key, err)
	}
	return p, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, p types.IrradiationProfile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

// noCache never stores anything.
type noCache struct{}

// NoCache returns a cache that always misses.
func NoCache() Cache { return noCache{} }

func (noCache) Get(context.Context, string) (types.IrradiationProfile, bool, error) {
	return types.IrradiationProfile{}, false, nil
}

func (noCache) Set(context.Context, string, types.IrradiationProfile) error { return nil }
