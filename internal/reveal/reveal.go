// Package reveal drives the step-based image reveal animations: the
// progressive zoom-out and the mystery tile grid. Both share one
// controller that auto-advances on an interval and can be nudged, paused,
// resumed and reset from the control surface.
package reveal

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/quizdeck/quizdeck/internal/events"
)

// Mode selects which event family the controller publishes and how manual
// stepping behaves.
type Mode string

const (
	// ModeZoom allows manual nudges at any time, running or not.
	ModeZoom Mode = "zoom"
	// ModeMystery ignores manual steps while the animation is stopped.
	ModeMystery Mode = "mystery"
)

// State is a read-only snapshot of the controller.
type State struct {
	Current int
	Total   int
	Running bool
}

// Controller is a step-driven animation controller. One goroutine per run
// drains a clock ticker; stopping waits for the goroutine to release it,
// so Stop and Reset are idempotent and never leak the interval.
type Controller struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	mode    Mode
	step    time.Duration
	publish func(events.Event)

	current int
	total   int
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewController creates a controller for the given mode using the real
// clock. step is the auto-advance interval.
func NewController(mode Mode, step time.Duration, publish func(events.Event)) *Controller {
	return NewControllerWithClock(mode, step, publish, clockwork.NewRealClock())
}

// NewControllerWithClock creates a controller with an injected clock.
func NewControllerWithClock(mode Mode, step time.Duration, publish func(events.Event), clock clockwork.Clock) *Controller {
	if step <= 0 {
		step = time.Second
	}
	return &Controller{clock: clock, mode: mode, step: step, publish: publish}
}

// SetInterval changes the auto-advance interval for subsequent runs, so a
// question's own reveal cadence can override the configured default.
func (c *Controller) SetInterval(step time.Duration) {
	if step <= 0 {
		return
	}
	c.mu.Lock()
	c.step = step
	c.mu.Unlock()
}

// Start resets progress to zero, emits a start event with the total step
// count and begins auto-advancing.
func (c *Controller) Start(total int) {
	c.halt()

	c.mu.Lock()
	c.current = 0
	c.total = total
	c.running = true
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	c.stopCh = stopCh
	c.doneCh = doneCh
	start := events.NewRevealProgress(c.typeFor("start"), 0, total)
	c.mu.Unlock()

	c.publish(start)
	go c.run(stopCh, doneCh)
}

// Step manually adjusts progress by delta, clamped to [0, total]. The
// mystery variant only honors manual steps while running; zoom nudges at
// any time.
func (c *Controller) Step(delta int) {
	c.mu.Lock()
	if c.mode == ModeMystery && !c.running {
		c.mu.Unlock()
		return
	}
	c.current = clamp(c.current+delta, 0, c.total)
	step := events.NewRevealProgress(c.typeFor("step"), c.current, c.total)
	c.mu.Unlock()

	c.publish(step)
}

// Stop pauses the animation and emits a stop event at the current
// progress. Progress is kept so Resume can continue.
func (c *Controller) Stop() {
	c.halt()

	c.mu.Lock()
	stop := events.NewRevealProgress(c.typeFor("stop"), c.current, c.total)
	c.mu.Unlock()

	c.publish(stop)
}

// Resume restarts auto-advancing from the current progress without
// resetting. No-op while running or before any Start.
func (c *Controller) Resume() {
	c.mu.Lock()
	if c.running || c.total == 0 {
		c.mu.Unlock()
		return
	}
	c.running = true
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	c.stopCh = stopCh
	c.doneCh = doneCh
	c.mu.Unlock()

	go c.run(stopCh, doneCh)
}

// Reset clears progress and total and halts the interval without emitting
// anything; used when moving to a new question.
func (c *Controller) Reset() {
	c.halt()
	c.mu.Lock()
	c.current = 0
	c.total = 0
	c.mu.Unlock()
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Current: c.current, Total: c.total, Running: c.running}
}

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

	c.mu.Lock()
	interval := c.step
	c.mu.Unlock()

	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.Chan():
			evts, done := c.advance(stopCh)
			for _, e := range evts {
				c.publish(e)
			}
			if done {
				return
			}
		}
	}
}

// advance moves progress forward by one and reports whether the animation
// completed. Completion emits a final step and then a stop event.
func (c *Controller) advance(stopCh chan struct{}) ([]events.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopCh != stopCh {
		return nil, true
	}

	if c.current < c.total {
		c.current++
	}
	out := []events.Event{events.NewRevealProgress(c.typeFor("step"), c.current, c.total)}

	if c.current >= c.total {
		c.stopCh = nil
		c.doneCh = nil
		c.running = false
		out = append(out, events.NewRevealProgress(c.typeFor("stop"), c.current, c.total))
		return out, true
	}
	return out, false
}

func (c *Controller) typeFor(stage string) events.Type {
	if c.mode == ModeZoom {
		switch stage {
		case "start":
			return events.TypeZoomStart
		case "step":
			return events.TypeZoomStep
		default:
			return events.TypeZoomStop
		}
	}
	switch stage {
	case "start":
		return events.TypeMysteryStart
	case "step":
		return events.TypeMysteryStep
	default:
		return events.TypeMysteryStop
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
