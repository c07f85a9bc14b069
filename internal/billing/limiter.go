package billing

import (
	"context"
	"time"

	"dialer-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// ConcurrencyLimiter caps concurrent dial attempts per campaign.
type ConcurrencyLimiter interface {
	Acquire(ctx context.Context, campaignID string) (bool, error)
	Release(ctx context.Context, campaignID string) error
}

// RedisLimiter enforces the cap with an atomic Redis counter. The TTL
// prevents leaked slots if a process dies mid-call.
type RedisLimiter struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int, ttl time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl}
}

func (l *RedisLimiter) key(campaignID string) string { return "callcap:" + campaignID }

func (l *RedisLimiter) Acquire(ctx context.Context, campaignID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, l.rdb, l.key(campaignID), l.limit, l.ttl)
}

func (l *RedisLimiter) Release(ctx context.Context, campaignID string) error {
	return utils.ReleaseConcurrencyCap(ctx, l.rdb, l.key(campaignID))
}
