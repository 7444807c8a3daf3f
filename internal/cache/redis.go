package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slotwise/schedulr/internal/schedule"
	"github.com/slotwise/schedulr/pkg/config"
)

func Connect(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	return redis.NewClient(opts), nil
}

// SlotCache keeps resolved day views for a few seconds. The read path is
// advisory anyway: the conflict guard re-validates at write time, so a stale
// cache entry costs at worst one ConflictError round trip.
type SlotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSlotCache(client *redis.Client, ttl time.Duration) *SlotCache {
	return &SlotCache{client: client, ttl: ttl}
}

func slotKey(hostID, eventTypeID int64, date, tz string) string {
	return fmt.Sprintf("slots:%d:%d:%s:%s", hostID, eventTypeID, date, tz)
}

func (c *SlotCache) Get(ctx context.Context, hostID, eventTypeID int64, date, tz string) ([]schedule.Slot, bool) {
	raw, err := c.client.Get(ctx, slotKey(hostID, eventTypeID, date, tz)).Bytes()
	if err != nil {
		return nil, false
	}
	var slots []schedule.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false
	}
	return slots, true
}

func (c *SlotCache) Set(ctx context.Context, hostID, eventTypeID int64, date, tz string, slots []schedule.Slot) error {
	raw, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, slotKey(hostID, eventTypeID, date, tz), raw, c.ttl).Err()
}

// Invalidate drops every cached view for a host. Keyed deletion per date is
// not worth the bookkeeping at this TTL.
func (c *SlotCache) Invalidate(ctx context.Context, hostID int64) {
	iter := c.client.Scan(ctx, 0, fmt.Sprintf("slots:%d:*", hostID), 100).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
}

// IdempotencyStore backs the Idempotency-Key middleware with redis.
type IdempotencyStore struct {
	client *redis.Client
}

func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (s *IdempotencyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// RateLimiter is a fixed-window counter used on the public booking endpoints.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Allow increments the counter for key and reports whether the caller is
// within the window's limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(rl.window.Seconds()))
	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open: a redis outage must not take bookings down.
		return true
	}
	return incr.Val() <= int64(rl.limit)
}
