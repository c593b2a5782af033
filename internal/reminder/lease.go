package reminder

import (
	"context"
	"time"

	pkgredis "github.com/clientflow-hq/clientflow/internal/pkg/redis"
	"github.com/google/uuid"
)

const sweepLockKey = "clientflow:reminder:sweep"

// RedisLease is a best-effort SetNX lock suppressing overlapping sweep
// ticks across instances.
type RedisLease struct {
	redis    *pkgredis.Client
	identity string
	ttl      time.Duration
}

func NewRedisLease(redis *pkgredis.Client, ttl time.Duration) *RedisLease {
	return &RedisLease{
		redis:    redis,
		identity: uuid.New().String(),
		ttl:      ttl,
	}
}

func (l *RedisLease) Acquire(ctx context.Context) (bool, error) {
	return l.redis.AcquireLock(ctx, sweepLockKey, l.identity, l.ttl)
}

func (l *RedisLease) Release(ctx context.Context) error {
	return l.redis.ReleaseLock(ctx, sweepLockKey, l.identity)
}
