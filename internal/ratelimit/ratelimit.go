// Package ratelimit provides token-bucket admission control keyed by an
// arbitrary string, reusable by any caller needing request throttling.
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Limiter tracks one token bucket per key. Buckets refill continuously at
// Rate tokens per second up to Burst. Each refill+consume step runs under
// the limiter mutex, so interleaved callers never corrupt bucket state.
type Limiter struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	rate    float64
	burst   float64
	buckets map[string]*bucket
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// NewLimiter creates a limiter allowing rate requests/second with the
// given burst capacity, using the real clock.
func NewLimiter(rate float64, burst int) *Limiter {
	return NewLimiterWithClock(rate, burst, clockwork.NewRealClock())
}

// NewLimiterWithClock creates a limiter with an injected clock for tests.
func NewLimiterWithClock(rate float64, burst int, clock clockwork.Clock) *Limiter {
	return &Limiter{
		clock:   clock,
		rate:    rate,
		burst:   float64(burst),
		buckets: make(map[string]*bucket),
	}
}

// Allow consumes one token from the key's bucket, reporting whether the
// request is admitted. A fresh key starts with a full bucket.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastFill: now}
		l.buckets[key] = b
	} else {
		b.tokens += now.Sub(b.lastFill).Seconds() * l.rate
		if b.tokens > l.burst {
			b.tokens = l.burst
		}
		b.lastFill = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Forget drops a key's bucket, typically when its connection goes away.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Cleanup removes buckets idle longer than the horizon, preventing the map
// from growing with dead keys. Call periodically.
func (l *Limiter) Cleanup(horizon time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for key, b := range l.buckets {
		if now.Sub(b.lastFill) > horizon {
			delete(l.buckets, key)
		}
	}
}
