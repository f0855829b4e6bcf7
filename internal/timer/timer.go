// Package timer drives the single countdown clock for the quiz phase the
// control surface is in. Ticks are emitted on a fine interval so UI
// animations stay smooth, while the displayed seconds only decrement once
// per full second of wall time.
package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/quizdeck/quizdeck/internal/events"
)

// Config controls tick cadence and the fallback countdown length used
// when Resume is called with no paused timer to pick up.
type Config struct {
	EmitInterval   time.Duration
	DefaultSeconds int
}

// DefaultConfig returns the production tick cadence.
func DefaultConfig() Config {
	return Config{
		EmitInterval:   250 * time.Millisecond,
		DefaultSeconds: 30,
	}
}

// Controller is the countdown clock. A single goroutine per run drains a
// clock ticker; halting closes the run's stop channel and waits for the
// goroutine to release its ticker, so stop is idempotent and never leaks
// the interval.
type Controller struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	config  Config
	publish func(events.Event)

	seconds  int
	phase    string
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	nextDrop time.Time
}

// NewController creates a controller emitting ticks through publish,
// using the real clock.
func NewController(config Config, publish func(events.Event)) *Controller {
	return NewControllerWithClock(config, publish, clockwork.NewRealClock())
}

// NewControllerWithClock creates a controller with an injected clock.
func NewControllerWithClock(config Config, publish func(events.Event), clock clockwork.Clock) *Controller {
	if config.EmitInterval <= 0 {
		config.EmitInterval = DefaultConfig().EmitInterval
	}
	if config.DefaultSeconds <= 0 {
		config.DefaultSeconds = DefaultConfig().DefaultSeconds
	}
	return &Controller{clock: clock, config: config, publish: publish}
}

// Start cancels any existing run, arms the countdown and emits an
// immediate tick.
func (c *Controller) Start(seconds int, phase string) {
	c.halt()

	c.mu.Lock()
	c.seconds = seconds
	c.phase = phase
	c.nextDrop = c.clock.Now().Add(time.Second)
	c.running = true
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	c.stopCh = stopCh
	c.doneCh = doneCh
	tick := events.NewTimerTick(c.seconds, c.phase)
	c.mu.Unlock()

	c.publish(tick)
	go c.run(stopCh, doneCh)
}

// Pause halts decrementing and emission without losing elapsed state.
func (c *Controller) Pause() {
	c.halt()
}

// Resume continues a paused countdown under the given phase label, or
// starts a fresh default-length countdown when there is nothing to resume.
func (c *Controller) Resume(phase string) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	seconds := c.seconds
	c.mu.Unlock()

	if seconds <= 0 {
		seconds = c.config.DefaultSeconds
		log.Debug().Int("seconds", seconds).Msg("no paused timer, resuming fresh")
	}
	c.Start(seconds, phase)
}

// AddTime adjusts the remaining seconds, floored at zero, and emits an
// immediate tick so observers update right away.
func (c *Controller) AddTime(delta int) {
	c.mu.Lock()
	c.seconds += delta
	if c.seconds < 0 {
		c.seconds = 0
	}
	tick := events.NewTimerTick(c.seconds, c.phase)
	c.mu.Unlock()

	c.publish(tick)
}

// Stop cancels the run and clears the countdown. Safe to call repeatedly
// or when already stopped.
func (c *Controller) Stop() {
	c.halt()
	c.mu.Lock()
	c.seconds = 0
	c.phase = ""
	c.mu.Unlock()
}

// Seconds returns the remaining seconds.
func (c *Controller) Seconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seconds
}

// Running reports whether the countdown is ticking.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Phase returns the phase label the countdown was started under.
func (c *Controller) Phase() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// halt cancels the current run, if any, and waits for its goroutine to
// release the ticker.
func (c *Controller) halt() {
	c.mu.Lock()
	stopCh, doneCh := c.stopCh, c.doneCh
	c.stopCh, c.doneCh = nil, nil
	c.running = false
	c.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}
}

func (c *Controller) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := c.clock.NewTicker(c.config.EmitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.Chan():
			tick, done := c.advance(stopCh)
			if tick != nil {
				c.publish(*tick)
			}
			if done {
				return
			}
		}
	}
}

// advance drops one second per full second of elapsed wall time and
// reports whether the countdown reached zero.
func (c *Controller) advance(stopCh chan struct{}) (*events.TimerTick, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer run may have replaced this one.
	if c.stopCh != stopCh {
		return nil, true
	}

	now := c.clock.Now()
	for !now.Before(c.nextDrop) && c.seconds > 0 {
		c.seconds--
		c.nextDrop = c.nextDrop.Add(time.Second)
	}

	tick := events.NewTimerTick(c.seconds, c.phase)
	if c.seconds <= 0 {
		c.stopCh = nil
		c.doneCh = nil
		c.running = false
		return &tick, true
	}
	return &tick, false
}
