// Package throttle caps noisy repeating events (404s) with best-effort Redis
// counters. Read-increment-write is not atomic across requests; a few extra
// alerts slipping through under load is accepted, corruption is not possible.
package throttle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Counter struct {
	rdb *redis.Client
	ttl time.Duration
}

type Option func(*Counter)

func WithTTL(ttl time.Duration) Option {
	return func(c *Counter) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func NewCounter(rdb *redis.Client, opts ...Option) *Counter {
	c := &Counter{rdb: rdb, ttl: 24 * time.Hour}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is empty")
	}
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}), nil
}

func key(siteID int, username, ip string) string {
	return fmt.Sprintf("throttle:404:%d:%s:%s", siteID, strings.TrimSpace(username), strings.TrimSpace(ip))
}

// Increment bumps the 24h counter for (site, user, ip). The TTL is set on
// first touch only, so the window expires as a whole rather than sliding.
func (c *Counter) Increment(ctx context.Context, siteID int, username, ip string) {
	if c == nil || c.rdb == nil {
		return
	}
	k := key(siteID, username, ip)
	pipe := c.rdb.Pipeline()
	incr := pipe.Incr(ctx, k)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return
	}
	if n, err := incr.Result(); err == nil && n == 1 {
		_ = c.rdb.Expire(ctx, k, c.ttl).Err()
	}
}

// IsPastLimit reports whether the stored count exceeds limit. An absent key
// (never incremented, or expired) is below any limit.
func (c *Counter) IsPastLimit(ctx context.Context, siteID int, username, ip string, limit int) bool {
	if c == nil || c.rdb == nil || limit <= 0 {
		return false
	}
	n, err := c.rdb.Get(ctx, key(siteID, username, ip)).Int64()
	if err != nil {
		return false
	}
	return n > int64(limit)
}

// Count is the current counter value; 0 when absent.
func (c *Counter) Count(ctx context.Context, siteID int, username, ip string) int64 {
	if c == nil || c.rdb == nil {
		return 0
	}
	n, err := c.rdb.Get(ctx, key(siteID, username, ip)).Int64()
	if err != nil {
		return 0
	}
	return n
}
