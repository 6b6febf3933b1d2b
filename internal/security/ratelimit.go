package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Limit is a sliding-window limit: at most Count events per Window.
type Limit struct {
	Count  int
	Window time.Duration
}

// RateLimiter implements per-bucket sliding window rate limiting.
// A nil *RateLimiter allows everything.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	limit  Limit
	events []time.Time
}

// NewRateLimiter creates a rate limiter with one bucket per entry in limits.
// Entries with a non-positive Count or Window are ignored.
func NewRateLimiter(limits map[string]Limit) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket, len(limits)),
		now:     time.Now,
	}
	for kind, l := range limits {
		if l.Count <= 0 || l.Window <= 0 {
			continue
		}
		rl.buckets[kind] = &bucket{limit: l}
	}
	return rl
}

// Allow records one event of kind and returns ErrRateLimited when the
// bucket is full. Kinds without a bucket are unlimited.
func (rl *RateLimiter) Allow(kind string) error {
	if rl == nil {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[kind]
	if !ok {
		return nil
	}

	now := rl.now()
	b.evict(now)

	if len(b.events) >= b.limit.Count {
		return ErrRateLimited
	}
	b.events = append(b.events, now)
	return nil
}

// evict removes events outside the sliding window. Events are appended in
// chronological order.
func (b *bucket) evict(now time.Time) {
	cutoff := now.Add(-b.limit.Window)
	i := 0
	for i < len(b.events) && b.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		b.events = b.events[i:]
	}
}
