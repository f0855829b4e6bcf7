package buzzer

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestFirstHitWins(t *testing.T) {
	a := NewArbiter(Config{})

	res := a.Hit("alice")
	assert.True(t, res.Accepted)
	assert.Equal(t, "alice", res.Winner)

	res = a.Hit("bob")
	assert.False(t, res.Accepted)
	assert.Equal(t, "alice", res.Winner)
	assert.Equal(t, "alice", a.Winner())
}

func TestResetClearsWinner(t *testing.T) {
	a := NewArbiter(Config{})
	a.Hit("alice")
	a.Reset()

	assert.Equal(t, "", a.Winner())
	res := a.Hit("bob")
	assert.True(t, res.Accepted)
}

func TestStealWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := NewArbiterWithClock(Config{StealEnabled: true, StealWindow: 2 * time.Second}, clock)

	a.Hit("alice")

	t.Run("inside window steals", func(t *testing.T) {
		clock.Advance(2*time.Second - time.Millisecond)
		res := a.Hit("bob")
		assert.True(t, res.Accepted)
		assert.Equal(t, "bob", res.Winner)
	})

	t.Run("outside window rejected", func(t *testing.T) {
		clock.Advance(2*time.Second + time.Millisecond)
		res := a.Hit("carol")
		assert.False(t, res.Accepted)
		assert.Equal(t, "bob", res.Winner)
	})
}

func TestDebounceBeatsSteal(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := NewArbiterWithClock(Config{
		StealEnabled: true,
		StealWindow:  2 * time.Second,
		LockWindow:   100 * time.Millisecond,
	}, clock)

	a.Hit("alice")

	// Within the debounce window the steal window is never consulted.
	clock.Advance(50 * time.Millisecond)
	res := a.Hit("bob")
	assert.False(t, res.Accepted)
	assert.Equal(t, "alice", res.Winner)

	// Past the debounce, the steal window applies again.
	clock.Advance(100 * time.Millisecond)
	res = a.Hit("bob")
	assert.True(t, res.Accepted)
	assert.Equal(t, "bob", res.Winner)
}

func TestForceLock(t *testing.T) {
	a := NewArbiter(Config{})
	a.ForceLock()

	res := a.Hit("alice")
	assert.False(t, res.Accepted)

	a.Release()
	res = a.Hit("alice")
	assert.True(t, res.Accepted)
}

func TestLockSurvivesReset(t *testing.T) {
	a := NewArbiter(Config{})
	a.ForceLock()
	a.Reset()

	res := a.Hit("alice")
	assert.False(t, res.Accepted)
}
