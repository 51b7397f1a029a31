package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/zeebo/xxh3"

	"github.com/totegamma/curatorgate/internal/domain"
	"github.com/totegamma/curatorgate/internal/usecase"
)

const grantKeyPrefix = "curatorgate:grant:"

type memcacheClient interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
}

// GrantCache remembers positive grant lookups in memcached. Grants are never
// revoked, so a cached positive cannot go stale; negatives always hit the store.
type GrantCache struct {
	next usecase.GrantRepository
	mc   memcacheClient
	ttl  time.Duration
}

func NewGrantCache(next usecase.GrantRepository, mc memcacheClient, ttl time.Duration) *GrantCache {
	return &GrantCache{
		next: next,
		mc:   mc,
		ttl:  ttl,
	}
}

func (c *GrantCache) Exists(ctx context.Context, subjectID, scopeID string) (bool, error) {
	key := grantKey(subjectID, scopeID)

	_, err := c.mc.Get(key)
	if err == nil {
		return true, nil
	}
	if err != memcache.ErrCacheMiss {
		slog.DebugContext(
			ctx, "grant cache unavailable",
			slog.String("error", err.Error()),
			slog.String("module", "cache"),
		)
	}

	ok, err := c.next.Exists(ctx, subjectID, scopeID)
	if err != nil || !ok {
		return ok, err
	}

	err = c.mc.Set(&memcache.Item{
		Key:        key,
		Value:      []byte{'1'},
		Expiration: int32(c.ttl / time.Second),
	})
	if err != nil {
		slog.DebugContext(
			ctx, "failed to fill grant cache",
			slog.String("error", err.Error()),
			slog.String("module", "cache"),
		)
	}
	return true, nil
}

func (c *GrantCache) ListBySubject(ctx context.Context, subjectID string) ([]domain.Grant, error) {
	return c.next.ListBySubject(ctx, subjectID)
}

// grantKey hashes the pair so arbitrary subject ids fit memcached's key rules.
func grantKey(subjectID, scopeID string) string {
	return formatKey(xxh3.HashString128(subjectID + "\x00" + scopeID))
}

func formatKey(h xxh3.Uint128) string {
	return fmt.Sprintf("%s%016x%016x", grantKeyPrefix, h.Hi, h.Lo)
}

var _ usecase.GrantRepository = (*GrantCache)(nil)
