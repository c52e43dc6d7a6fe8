// Package cache keeps NGO verification verdicts in Redis so the donation
// accept path does not hit the profile store on every request.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	id "givebridge/pkg/domain"
)

var lookupDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "givebridge_ngo_verification_cache_lookup_duration_ms",
	Help:    "Latency of NGO verification cache lookups in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const (
	keyPrefix  = "givebridge:ngo:verified:"
	DefaultTTL = 5 * time.Minute
)

// VerificationCache stores "1" or "0" per NGO id with a TTL.
type VerificationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type Option func(*VerificationCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *VerificationCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func New(client *redis.Client, opts ...Option) *VerificationCache {
	c := &VerificationCache{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func key(ngoID id.UserID) string {
	return keyPrefix + ngoID.String()
}

// Get returns the cached verdict. found is false on a cache miss.
func (c *VerificationCache) Get(ctx context.Context, ngoID id.UserID) (verified, found bool, err error) {
	start := time.Now()
	defer func() {
		lookupDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	val, err := c.client.Get(ctx, key(ngoID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

func (c *VerificationCache) Set(ctx context.Context, ngoID id.UserID, verified bool) error {
	val := "0"
	if verified {
		val = "1"
	}
	return c.client.Set(ctx, key(ngoID), val, c.ttl).Err()
}

func (c *VerificationCache) Invalidate(ctx context.Context, ngoID id.UserID) error {
	return c.client.Del(ctx, key(ngoID)).Err()
}
