package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/farmlink/marketplace/internal/cache"
)

// RateDecision is the outcome of a single rate limit check.
type RateDecision struct {
	Allowed   bool
	Remaining int
	Reset     time.Duration
}

// RateStore decides whether another request for key fits into limit per window.
type RateStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateDecision, error)
}

// cacheRateStore counts requests in fixed windows on a shared cache.Store (Redis or the database).
type cacheRateStore struct {
	store cache.Store
}

// NewCacheRateStore builds a RateStore shared by every instance using the cache.
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return &cacheRateStore{store: store}
}

func (s *cacheRateStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateDecision, error) {
	count, ttl, err := s.store.IncrementWithTTL(ctx, "ratelimit:"+key, window)
	if err != nil {
		return RateDecision{Allowed: true}, err
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return RateDecision{
		Allowed:   int(count) <= limit,
		Remaining: remaining,
		Reset:     ttl,
	}, nil
}

// memoryRateStore keeps a token bucket per key in process memory.
type memoryRateStore struct {
	mu       sync.Mutex
	limiters map[string]*bucket
	clock    func() time.Time
	lastGC   time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryRateStore constructs an in-memory rate store for single instance deployments.
func NewMemoryRateStore() RateStore {
	return &memoryRateStore{
		limiters: make(map[string]*bucket),
		clock:    time.Now,
	}
}

func (s *memoryRateStore) Allow(_ context.Context, key string, limit int, window time.Duration) (RateDecision, error) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.collect(now, window)

	b, ok := s.limiters[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)}
		s.limiters[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	var reset time.Duration
	if tokens < 1 {
		reset = time.Duration((1 - tokens) * float64(window) / float64(limit))
	}

	return RateDecision{Allowed: allowed, Remaining: remaining, Reset: reset}, nil
}

// collect drops buckets idle for more than a window; called with the lock held.
func (s *memoryRateStore) collect(now time.Time, window time.Duration) {
	if now.Sub(s.lastGC) < window {
		return
	}
	s.lastGC = now
	for key, b := range s.limiters {
		if now.Sub(b.lastSeen) > window {
			delete(s.limiters, key)
		}
	}
}
