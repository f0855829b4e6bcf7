// Package buzzer arbitrates buzz events from many players into a single
// winner per question, with optional steal and debounce windows.
package buzzer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Config controls arbitration behavior. A zero StealWindow disables
// stealing; LockWindow absorbs near-simultaneous presses into one winner.
type Config struct {
	StealEnabled bool
	StealWindow  time.Duration
	LockWindow   time.Duration
}

// Result reports the outcome of a hit.
type Result struct {
	Accepted bool
	Winner   string
}

// Arbiter is a first-come-wins buzzer with an optional steal window.
// Safe for concurrent use.
type Arbiter struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	config Config

	winner   string
	winnerAt time.Time
	locked   bool
}

// NewArbiter creates an arbiter using the real clock.
func NewArbiter(config Config) *Arbiter {
	return NewArbiterWithClock(config, clockwork.NewRealClock())
}

// NewArbiterWithClock creates an arbiter with an injected clock for tests.
func NewArbiterWithClock(config Config, clock clockwork.Clock) *Arbiter {
	return &Arbiter{clock: clock, config: config}
}

// Hit registers a buzz from a player. The first hit wins; later hits are
// rejected unless stealing is enabled and the hit lands inside the steal
// window. The debounce window is checked before the steal window: a hit
// within LockWindow of the current winner is rejected even if it would
// have qualified as a steal, so near-simultaneous presses collapse into a
// single winner.
func (a *Arbiter) Hit(playerID string) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.locked {
		return Result{Accepted: false, Winner: a.winner}
	}

	now := a.clock.Now()

	if a.winner == "" {
		a.winner = playerID
		a.winnerAt = now
		log.Debug().Str("player_id", playerID).Msg("buzzer winner recorded")
		return Result{Accepted: true, Winner: playerID}
	}

	elapsed := now.Sub(a.winnerAt)
	if a.config.LockWindow > 0 && elapsed < a.config.LockWindow {
		return Result{Accepted: false, Winner: a.winner}
	}

	if !a.config.StealEnabled {
		return Result{Accepted: false, Winner: a.winner}
	}

	if elapsed <= a.config.StealWindow {
		log.Debug().
			Str("player_id", playerID).
			Str("stolen_from", a.winner).
			Dur("elapsed", elapsed).
			Msg("buzzer stolen")
		a.winner = playerID
		a.winnerAt = now
		return Result{Accepted: true, Winner: playerID}
	}

	return Result{Accepted: false, Winner: a.winner}
}

// Configure swaps in a new question's windows and clears winner state.
func (a *Arbiter) Configure(config Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.config = config
	a.winner = ""
	a.winnerAt = time.Time{}
}

// Reset clears winner state for a new question. The hard lock is left
// untouched so a manual lock survives navigation.
func (a *Arbiter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.winner = ""
	a.winnerAt = time.Time{}
}

// ForceLock rejects all hits until Release, independent of winner state.
func (a *Arbiter) ForceLock() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.locked = true
}

// Release lifts a ForceLock.
func (a *Arbiter) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.locked = false
}

// Winner returns the current winner id, or "" when nobody has buzzed.
func (a *Arbiter) Winner() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.winner
}
