package session

import "time"

// Watchdog reports when the boss is owed a counterattack: no correct answer
// has landed within the cadence. Paused time is not counted.
type Watchdog struct {
	clock    Clock
	cadence  time.Duration
	last     time.Time
	paused   bool
	pausedAt time.Time
}

// NewWatchdog starts a watchdog with the given cadence.
func NewWatchdog(clock Clock, cadence time.Duration) *Watchdog {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Watchdog{clock: clock, cadence: cadence, last: clock.Now()}
}

// Reset restarts the wait, called after every correct answer.
func (w *Watchdog) Reset() {
	w.last = w.clock.Now()
}

// SetCadence changes the allowed wait, e.g. after entering a new arena.
func (w *Watchdog) SetCadence(d time.Duration) {
	w.cadence = d
}

// Cadence returns the allowed wait.
func (w *Watchdog) Cadence() time.Duration {
	return w.cadence
}

// Pause stops the wait from advancing.
func (w *Watchdog) Pause() {
	if w.paused {
		return
	}
	w.paused = true
	w.pausedAt = w.clock.Now()
}

// Resume continues the wait without counting the pause.
func (w *Watchdog) Resume() {
	if !w.paused {
		return
	}
	w.paused = false
	w.last = w.last.Add(w.clock.Now().Sub(w.pausedAt))
}

// Due reports whether a counterattack should fire now. Firing restarts the wait,
// so a silent player is hit once per cadence.
func (w *Watchdog) Due() bool {
	if w.paused || w.cadence <= 0 {
		return false
	}
	now := w.clock.Now()
	if now.Sub(w.last) < w.cadence {
		return false
	}
	w.last = now
	return true
}
