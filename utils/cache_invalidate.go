package utils

import (
	"context"
	"github.com/redis/go-redis/v9"
)

// CacheInvalidator purges cached event responses after a mutation so the
// next read sees fresh data instead of a stale cache hit.
type CacheInvalidator struct{ rdb *redis.Client }

func NewCacheInvalidator(rdb *redis.Client) *CacheInvalidator { return &CacheInvalidator{rdb} }

func (ci *CacheInvalidator) PurgeEventsList(ctx context.Context) {
	ci.purge(ctx, "cache:events:list:*")
}

// PurgeEventItem drops all cached single-event responses. Keys embed a
// hash of the id, so the scan is by prefix rather than exact key.
func (ci *CacheInvalidator) PurgeEventItem(ctx context.Context, id string) {
	ci.purge(ctx, "cache:events:item:*")
}

func (ci *CacheInvalidator) purge(ctx context.Context, pattern string) {
	iter := ci.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		_ = ci.rdb.Del(ctx, iter.Val()).Err()
	}
}
