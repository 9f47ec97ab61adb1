package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/graxinc/errutil"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "poddy:"

type Options struct {
	OwnerTTL   time.Duration
	ChannelTTL time.Duration
	RolesTTL   time.Duration
	MaxLocal   int
}

// Cache is the shared, advisory key-value cache. Values live in redis when a
// URL is configured and always in a local fallback so a redis outage only
// degrades sharing between shards.
type Cache struct {
	c *redis.Client
	l *slog.Logger
	b *CircuitBreaker
	f *FallbackCache
	o Options
}

func NewCache(url string, l *slog.Logger, o Options) (*Cache, error) {
	if o.MaxLocal <= 0 {
		o.MaxLocal = 10000
	}

	c := Cache{
		l: l,
		b: NewCircuitBreaker(5, 30*time.Second),
		f: NewFallbackCache(o.MaxLocal, time.Minute),
		o: o,
	}

	if url != "" {
		opt, err := redis.ParseURL(url)
		if err != nil {
			return nil, errutil.With(err)
		}
		c.c = redis.NewClient(opt)
	}

	return &c, nil
}

func (c *Cache) Close() error {
	c.f.Close()
	if c.c == nil {
		return nil
	}
	return c.c.Close()
}

// Client returns the redis client, or nil when running without redis.
func (c *Cache) Client() *redis.Client {
	return c.c
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.c != nil && c.b.Allow() {
		data, err := c.c.Get(ctx, keyPrefix+key).Bytes()
		switch {
		case err == nil:
			c.b.Record(nil)
			return data, true
		case errors.Is(err, redis.Nil):
			c.b.Record(nil)
			return nil, false
		default:
			c.b.Record(err)
			c.l.Warn("error reading from redis, using fallback", "key", key, "error", err, "circuit", c.b.State())
		}
	}

	return c.f.Get(key)
}

func (c *Cache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	c.f.Set(key, data, ttl)

	if c.c != nil && c.b.Allow() {
		err := c.c.Set(ctx, keyPrefix+key, data, ttl).Err()
		c.b.Record(err)
		if err != nil {
			c.l.Warn("error writing to redis", "key", key, "error", err, "circuit", c.b.State())
		}
	}
}

func (c *Cache) Delete(ctx context.Context, key string) {
	c.f.Delete(key)

	if c.c != nil && c.b.Allow() {
		err := c.c.Del(ctx, keyPrefix+key).Err()
		c.b.Record(err)
		if err != nil {
			c.l.Warn("error deleting from redis", "key", key, "error", err, "circuit", c.b.State())
		}
	}
}
