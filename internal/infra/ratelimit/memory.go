package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/curatorgate/internal/usecase"
)

var tracer = otel.Tracer("ratelimit")

// MemoryLimiter keeps the same sliding-window log as RedisLimiter inside
// this process. It is used when no redis is configured.
type MemoryLimiter struct {
	mu     sync.Mutex
	cache  *cache.Cache
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		cache:  cache.New(window, 2*window),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	var attempts []time.Time
	if cached, found := l.cache.Get(key); found {
		attempts = cached.([]time.Time)
	}

	kept := attempts[:0]
	for _, at := range attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	kept = append(kept, now)
	// limit+1 entries are enough to tell whether the window is over budget
	if len(kept) > l.limit+1 {
		kept = kept[len(kept)-(l.limit+1):]
	}
	l.cache.Set(key, kept, l.window)

	return len(kept) <= l.limit, nil
}

var _ usecase.RateLimiter = (*MemoryLimiter)(nil)
