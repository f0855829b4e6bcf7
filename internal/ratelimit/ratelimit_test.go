package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestBurstThenDeny(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLimiterWithClock(1, 3, clock)

	assert.True(t, l.Allow("conn-1"))
	assert.True(t, l.Allow("conn-1"))
	assert.True(t, l.Allow("conn-1"))
	assert.False(t, l.Allow("conn-1"))
}

func TestRefill(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLimiterWithClock(2, 2, clock)

	l.Allow("conn-1")
	l.Allow("conn-1")
	assert.False(t, l.Allow("conn-1"))

	clock.Advance(500 * time.Millisecond)
	assert.True(t, l.Allow("conn-1"), "half a second at 2/s refills one token")
	assert.False(t, l.Allow("conn-1"))
}

func TestKeysAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLimiterWithClock(1, 1, clock)

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestRefillCapsAtBurst(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLimiterWithClock(10, 2, clock)

	l.Allow("a")
	clock.Advance(time.Minute)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestCleanup(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLimiterWithClock(1, 1, clock)

	l.Allow("stale")
	clock.Advance(10 * time.Minute)
	l.Allow("fresh")
	l.Cleanup(5 * time.Minute)

	l.mu.Lock()
	_, staleKept := l.buckets["stale"]
	_, freshKept := l.buckets["fresh"]
	l.mu.Unlock()

	assert.False(t, staleKept)
	assert.True(t, freshKept)
}
