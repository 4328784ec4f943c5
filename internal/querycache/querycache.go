// Package querycache provides a short-TTL Redis-backed cache of aggregation
// bucket lists, keyed by tile coordinate and the style-independent query
// parameters. Nothing rendered is ever stored here: what is cached is the
// upstream aggregation result, which is shared across style and parameter
// variations of the same tile, so a short TTL shields the backing store
// from duplicate round trips without persisting any tile output.
package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arxos/tile-server/internal/bucket"
)

// Cache wraps a Redis client for bucket-list memoisation.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs a Cache backed by the given Redis client.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Ping checks Redis reachability, for health reporting.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Key builds the cache key for a tile/index/search combination.
func Key(z, x, y int, indexes []string, searchDigest string) string {
	return fmt.Sprintf("buckets:%d:%d:%d:%v:%s", z, x, y, indexes, searchDigest)
}

// Get returns the cached bucket list for key, if present and unexpired.
func (c *Cache) Get(ctx context.Context, key string) ([]*bucket.Bucket, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var buckets []*bucket.Bucket
	if err := json.Unmarshal(raw, &buckets); err != nil {
		return nil, false
	}
	return buckets, true
}

// Set stores the bucket list under key with the cache's configured TTL.
func (c *Cache) Set(ctx context.Context, key string, buckets []*bucket.Bucket) error {
	raw, err := json.Marshal(buckets)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}
