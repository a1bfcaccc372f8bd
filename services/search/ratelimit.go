package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trustwork/discovery/db/datastore"
	"github.com/trustwork/discovery/logger"
)

const (
	rateLimitWindow        = 60 * time.Second
	maxRequestsPerWindow   = 30
	maxAnonymousPerWindow  = 10
	bucketEvictionInterval = 5 * time.Minute
)

// Decision is the outcome of one rate-limit check. ResetAt is deterministic
// so denied callers know when the quota restores.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a principal may issue another search right now.
// It never blocks; denial is surfaced by the caller as RATE_LIMIT_EXCEEDED.
type Limiter interface {
	Check(ctx context.Context, principalID string) (Decision, error)
}

func limitFor(principalID string) int {
	if principalID == "" || principalID == datastore.PrincipalAnonymous {
		return maxAnonymousPerWindow
	}
	return maxRequestsPerWindow
}

type bucket struct {
	windowStart time.Time
	count       int
	resetAt     time.Time
}

// MemoryLimiter counts requests per principal in a process-local map. It is
// authoritative only for a single replica; multi-replica deployments use
// RedisLimiter behind the same interface.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Check(_ context.Context, principalID string) (Decision, error) {
	limit := limitFor(principalID)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[principalID]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{windowStart: now, resetAt: now.Add(rateLimitWindow)}
		l.buckets[principalID] = b
	}

	if b.count >= limit {
		return Decision{Allowed: false, Remaining: 0, ResetAt: b.resetAt}, nil
	}

	b.count++
	return Decision{Allowed: true, Remaining: limit - b.count, ResetAt: b.resetAt}, nil
}

// EvictIdle drops buckets whose window expired long enough ago that the
// principal is clearly inactive. Run it as a background goroutine.
func (l *MemoryLimiter) EvictIdle(ctx context.Context) {
	ticker := time.NewTicker(bucketEvictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict()
		}
	}
}

func (l *MemoryLimiter) evict() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for principalID, b := range l.buckets {
		if now.Sub(b.resetAt) >= bucketEvictionInterval {
			delete(l.buckets, principalID)
		}
	}
}

// RedisLimiter keeps the per-principal counters in a shared TTL keyspace so
// every replica sees the same window. Same decision semantics as
// MemoryLimiter.
type RedisLimiter struct {
	client *redis.Client
	logger logger.Logger
	now    func() time.Time
}

func NewRedisLimiter(ctx context.Context, logger logger.Logger, redisURL string) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisLimiter{client: client, logger: logger, now: time.Now}, nil
}

func (l *RedisLimiter) Check(ctx context.Context, principalID string) (Decision, error) {
	limit := limitFor(principalID)
	key := "ratelimit:" + principalID

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit incr: %w", err)
	}

	// First request in the window owns setting the expiry.
	if count == 1 {
		if err := l.client.PExpire(ctx, key, rateLimitWindow).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	ttl, err := l.client.PTTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		l.logger.Warn("rate limit ttl lookup failed, assuming a full window", "key", key, "error", err)
		ttl = rateLimitWindow
	}
	resetAt := l.now().Add(ttl)

	if int(count) > limit {
		return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	return Decision{Allowed: true, Remaining: limit - int(count), ResetAt: resetAt}, nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
