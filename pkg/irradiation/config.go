package irradiation

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/heliometric/heliometric/pkg/metrics"
	"github.com/levenlabs/go-lflag"
)

// Configured sets up the providers and the cache based on flags and returns
// the Reconciler.
func Configured(m *metrics.Collector) *Reconciler {
	pvgis := configuredPVGIS()
	nasa := configuredNASAPower()
	r := New(nil, m, pvgis, nasa, DefaultRegionalTable())

	cacheKind := lflag.String("irradiation-cache", "memory", "Irradiation profile cache (available: memory, redis, none)")
	cacheTTL := lflag.Duration("irradiation-cache-ttl", 7*24*time.Hour, "How long a resolved irradiation profile is cached")
	redisAddr := lflag.String("redis-addr", "127.0.0.1:6379", "Address of the redis server when irradiation-cache is redis")
	bulkDelay := lflag.Duration("bulk-resolve-delay", time.Second, "Minimum delay between calls during bulk resolution")

	lflag.Do(func() {
		if err := pvgis.Validate(); err != nil {
			panic(fmt.Sprintf("pvgis validation failed: %v", err))
		}
		if err := nasa.Validate(); err != nil {
			panic(fmt.Sprintf("nasa power validation failed: %v", err))
		}

		switch *cacheKind {
		case "memory":
			r.cache = NewMemoryCache(*cacheTTL)
		case "redis":
			r.cache = NewRedisCache(redis.NewClient(&redis.Options{Addr: *redisAddr}), *cacheTTL)
		case "none":
			r.cache = NoCache()
		default:
			panic(fmt.Sprintf("unknown irradiation cache: %s", *cacheKind))
		}
		r.SetBulkDelay(*bulkDelay)
	})

	return r
}
