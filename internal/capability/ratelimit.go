package capability

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a bucket has no tokens left. Callers
// handle it like any capability failure: skip the call and fall back.
var ErrRateLimited = errors.New("capability: rate limited")

// TokenBucket is a keyed token-bucket rate limiter gating outbound
// capability calls (one bucket per key, e.g. "generate" or "embed").
type TokenBucket struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	refill   time.Duration
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewTokenBucket returns a limiter allowing capacity calls per key, with
// one token restored every refill interval.
func NewTokenBucket(capacity int, refill time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	if refill <= 0 {
		refill = time.Second
	}
	return &TokenBucket{
		buckets:  make(map[string]*bucket),
		capacity: capacity,
		refill:   refill,
	}
}

// Acquire takes one token for key, returning a release function that puts
// the token back. When the bucket is empty it returns ErrRateLimited
// without blocking.
func (tb *TokenBucket) Acquire(ctx context.Context, key string) (func(), error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, lastRefill: time.Now()}
		tb.buckets[key] = b
	}

	if restored := int(time.Since(b.lastRefill) / tb.refill); restored > 0 {
		b.tokens = min(b.tokens+restored, tb.capacity)
		b.lastRefill = b.lastRefill.Add(time.Duration(restored) * tb.refill)
	}

	if b.tokens <= 0 {
		return nil, ErrRateLimited
	}
	b.tokens--

	release := func() {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		if b, ok := tb.buckets[key]; ok {
			b.tokens = min(b.tokens+1, tb.capacity)
		}
	}
	return release, nil
}

var _ RateLimiter = (*TokenBucket)(nil)
