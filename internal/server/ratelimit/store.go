// Package ratelimit implements fixed-window request limiting. Counters live
// in Redis when one is configured, so several server processes share one
// budget per client, and in process memory otherwise.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable wraps counter backend failures.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Store keeps one counter per key. A window starts with the first Incr on
// a key and lasts window; the counter resets when it ends.
type Store interface {
	// Incr bumps key and returns the new count and the time left in the window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	// Get returns the current count and time left. A missing key is zero.
	Get(ctx context.Context, key string) (int64, time.Duration, error)
}

type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// fixed window: the TTL is set only by the first hit
	if count == 1 {
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return count, window, nil
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if ttl < 0 {
		// a crash between INCR and PEXPIRE leaves a key without TTL
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		ttl = window
	}
	return count, ttl, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, time.Duration, error) {
	count, err := s.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, max(ttl, 0), nil
}

type counter struct {
	count int64
	reset time.Time
}

// MemoryStore is a Store local to one process.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
	ops      int
}

// sweepEvery controls how often expired counters are dropped.
const sweepEvery = 1024

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]*counter), now: time.Now}
}

func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.ops++
	if s.ops%sweepEvery == 0 {
		s.sweep(now)
	}

	c, ok := s.counters[key]
	if !ok || !now.Before(c.reset) {
		c = &counter{reset: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, c.reset.Sub(now), nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.reset) {
		return 0, 0, nil
	}
	return c.count, c.reset.Sub(now), nil
}

func (s *MemoryStore) sweep(now time.Time) {
	for k, c := range s.counters {
		if !now.Before(c.reset) {
			delete(s.counters, k)
		}
	}
}
