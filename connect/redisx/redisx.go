// Package redisx provides Redis connectivity built on loom endpoints,
// plus an IdempotencyStore and a RateLimiter on top of the client.
//
// In tests, construct from a resolved environment endpoint:
//
//	client, err := redisx.Connect(ctx, env.Endpoint("cache"))
//	defer client.Close()
//
// In service code, construct from parsed wiring:
//
//	w, _ := connect.ParseWiring(ctx)
//	client, err := redisx.Connect(ctx, w.Egress("cache"))
package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matgreaves/loom/connect"
)

// Connect returns a go-redis client parsed from the endpoint's REDIS_URL
// attribute and verifies connectivity with a PING.
func Connect(ctx context.Context, ep connect.Endpoint) (*redis.Client, error) {
	url, _ := connect.RedisURL.Get(ep)
	if url == "" {
		url = "redis://" + ep.Addr()
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// IdempotencyStore records whether a client-supplied idempotency key has
// already been seen, so a handler can short-circuit a retried request
// instead of re-executing a side effect.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewIdempotencyStore wraps rdb. Keys recorded with Seen expire after ttl.
func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// Seen atomically records key as seen and reports whether it had already
// been recorded — true means this is a repeat of an earlier request.
func (s *IdempotencyStore) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, "idem:"+key, 1, s.ttl).Result()
	if err != nil {
		return false, err
	}
	// SetNX returns true when the key was newly set, i.e. not seen before.
	return !ok, nil
}

// RateLimiter implements a fixed-window counter over a Redis INCR, the
// simplest rate-limit shape that needs no client-side state.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
}

// NewRateLimiter allows up to limit calls to Allow per window, per key.
func NewRateLimiter(rdb *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, limit: limit, window: window}
}

// Allow increments the counter for key and reports whether the caller is
// still within the configured limit for the current window.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Incr(ctx, "rl:"+key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		r.rdb.Expire(ctx, "rl:"+key, r.window)
	}
	return n <= r.limit, nil
}
