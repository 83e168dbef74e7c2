package recon

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/arben-grepi/ecomm-storefront-generator-sub001/internal/commerce"
)

// RateSource yields the current carrier shipping-rate table. A failing
// source never fails market resolution; callers fall back to configured
// estimates.
type RateSource interface {
	Rates(ctx context.Context) (commerce.ShippingRateTable, error)
}

const rateCacheKey = "recon:shipping_rates"

// CachedRateSource fetches the rate table from the upstream platform and
// caches it in Redis with a TTL. With no Redis client it degrades to a
// direct fetch per call, which the upstream rate limiter absorbs.
type CachedRateSource struct {
	api   commerce.API
	redis *redis.Client
	ttl   time.Duration
	log   *logrus.Entry
}

// NewCachedRateSource creates a rate source. redisClient may be nil.
func NewCachedRateSource(api commerce.API, redisClient *redis.Client, ttl time.Duration, log *logrus.Entry) *CachedRateSource {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachedRateSource{api: api, redis: redisClient, ttl: ttl, log: log}
}

func (s *CachedRateSource) Rates(ctx context.Context) (commerce.ShippingRateTable, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, rateCacheKey).Bytes()
		if err == nil {
			var table commerce.ShippingRateTable
			if err := json.Unmarshal(cached, &table); err == nil {
				return table, nil
			}
			s.log.Warn("discarding unreadable cached shipping-rate table")
		} else if err != redis.Nil {
			s.log.WithError(err).Warn("shipping-rate cache read failed")
		}
	}

	table, err := s.api.GetShippingRates(ctx)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(table); err == nil {
			if err := s.redis.Set(ctx, rateCacheKey, data, s.ttl).Err(); err != nil {
				s.log.WithError(err).Warn("shipping-rate cache write failed")
			}
		}
	}
	return table, nil
}

// StaticRateSource returns a fixed table; tests use it.
type StaticRateSource struct {
	Table commerce.ShippingRateTable
	Err   error
}

func (s StaticRateSource) Rates(ctx context.Context) (commerce.ShippingRateTable, error) {
	return s.Table, s.Err
}
