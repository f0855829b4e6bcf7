package timer

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdeck/quizdeck/internal/events"
)

func newTestController(t *testing.T) (*Controller, *clockwork.FakeClock, chan events.TimerTick) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	ticks := make(chan events.TimerTick, 64)
	c := NewControllerWithClock(Config{EmitInterval: 250 * time.Millisecond, DefaultSeconds: 30}, func(e events.Event) {
		ticks <- e.(events.TimerTick)
	}, clock)
	return c, clock, ticks
}

// waitForSeconds drains ticks until one reports the wanted remaining
// seconds. Fine-grained emission means several ticks can carry the same
// value before the next decrement.
func waitForSeconds(t *testing.T, ticks chan events.TimerTick, want int) events.TimerTick {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case tick := <-ticks:
			if tick.SecondsRemaining == want {
				return tick
			}
		case <-deadline:
			t.Fatalf("no tick with %d seconds remaining", want)
		}
	}
}

func TestStartEmitsImmediateTick(t *testing.T) {
	c, _, ticks := newTestController(t)
	c.Start(5, "accept_answers")

	tick := <-ticks
	assert.Equal(t, 5, tick.SecondsRemaining)
	assert.Equal(t, "accept_answers", tick.Phase)
	assert.True(t, c.Running())
}

func TestDecrementsOncePerSecond(t *testing.T) {
	c, clock, ticks := newTestController(t)
	c.Start(3, "q")
	<-ticks

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitForSeconds(t, ticks, 2)
	assert.Equal(t, 2, c.Seconds())

	clock.Advance(time.Second)
	waitForSeconds(t, ticks, 1)
}

func TestAutoStopsAtZero(t *testing.T) {
	c, clock, ticks := newTestController(t)
	c.Start(1, "q")
	<-ticks

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitForSeconds(t, ticks, 0)

	require.Eventually(t, func() bool { return !c.Running() }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, c.Seconds())
}

func TestPauseKeepsElapsedState(t *testing.T) {
	c, clock, ticks := newTestController(t)
	c.Start(10, "q")
	<-ticks

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitForSeconds(t, ticks, 9)

	c.Pause()
	assert.False(t, c.Running())
	assert.Equal(t, 9, c.Seconds())

	c.Resume("q")
	tick := <-ticks
	assert.Equal(t, 9, tick.SecondsRemaining)
	assert.True(t, c.Running())
}

func TestResumeWithNothingToResumeStartsFresh(t *testing.T) {
	c, _, ticks := newTestController(t)
	c.Resume("interstitial")

	tick := <-ticks
	assert.Equal(t, 30, tick.SecondsRemaining)
	assert.Equal(t, "interstitial", tick.Phase)
}

func TestAddTime(t *testing.T) {
	c, _, ticks := newTestController(t)
	c.Start(5, "q")
	<-ticks

	c.AddTime(10)
	tick := <-ticks
	assert.Equal(t, 15, tick.SecondsRemaining)

	c.AddTime(-100)
	tick = <-ticks
	assert.Equal(t, 0, tick.SecondsRemaining)
}

func TestStopIsIdempotent(t *testing.T) {
	c, _, ticks := newTestController(t)
	c.Start(5, "q")
	<-ticks

	c.Stop()
	c.Stop()
	assert.False(t, c.Running())
	assert.Equal(t, 0, c.Seconds())
}

func TestStartCancelsPreviousRun(t *testing.T) {
	c, clock, ticks := newTestController(t)
	c.Start(5, "first")
	<-ticks

	c.Start(8, "second")
	tick := <-ticks
	assert.Equal(t, 8, tick.SecondsRemaining)
	assert.Equal(t, "second", tick.Phase)

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	tick = waitForSeconds(t, ticks, 7)
	assert.Equal(t, "second", tick.Phase)
}
