package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/xxh3"

	"github.com/totegamma/curatorgate/internal/usecase"
)

const keyPrefix = "curatorgate:rl:"

// RedisLimiter is a sliding-window log shared by every server process. Each
// attempt is recorded, rejected ones included, so hammering a key keeps it
// blocked until the caller backs off for a full window.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	ctx, span := tracer.Start(ctx, "RateLimit.Redis.Allow")
	defer span.End()

	now := l.now()
	k := l.redisKey(key)
	cutoff := now.Add(-l.window).UnixMicro()

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, k, redis.Z{
		Score:  float64(now.UnixMicro()),
		Member: strconv.FormatInt(now.UnixNano(), 36) + ":" + uuid.NewString(),
	})
	card := pipe.ZCard(ctx, k)
	pipe.PExpire(ctx, k, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return false, errors.Wrap(err, "failed to record attempt")
	}

	return card.Val() <= int64(l.limit), nil
}

func (l *RedisLimiter) redisKey(key string) string {
	return keyPrefix + strconv.FormatUint(xxh3.HashString(key), 16)
}

var _ usecase.RateLimiter = (*RedisLimiter)(nil)
