// Package session implements the play-session state machine and scoring engine.
//
// An Engine is driven from a single event loop: answers, ticks, counterattacks and
// deferred advances must not interleave. Only End may be called from several
// triggers at once; a single-use latch makes the transition happen exactly once.
package session

import (
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/verte-zerg/chordarena/internal/arena"
	"github.com/verte-zerg/chordarena/internal/chord"
)

const (
	DefaultStartSeconds = 60
	MaxSeconds          = 600
	MaxHP               = 100
	MissDamage          = 10
	HitsPerLevel        = 10
	SpecialEvery        = 10
	FeedbackDelay       = 900 * time.Millisecond
	PerfectWindow       = 1500 * time.Millisecond
	ShuffleChance       = 0.25
	JumpChance          = 0.15
)

// LevelXP is the base XP of a correct answer at level.
func LevelXP(level int) int {
	return level * 10
}

// Points is the score of a correct answer at level.
func Points(level int) int {
	return level * 10
}

// TimeBonus is the seconds added per correct answer: max(1, floor(level/1.5)).
func TimeBonus(level int) int {
	return max(1, 2*level/3)
}

// Options configures an Engine.
type Options struct {
	Rand         *rand.Rand
	Clock        Clock
	Arena        arena.Arena
	Watch        arena.BossWatch
	StartSeconds float64
}

// Engine owns one play session.
type Engine struct {
	gen   *chord.Generator
	rnd   *rand.Rand
	clock Clock
	arena arena.Arena
	watch arena.BossWatch
	start float64

	phase     Phase
	state     State
	ended     atomic.Bool
	reason    EndReason
	startedAt time.Time
	endedAt   time.Time

	suspended   bool
	suspendedAt time.Time

	pending   Token
	lastToken Token

	shownAt    time.Time
	perfectRun int
	defeated   bool
	bosses     int
}

// New builds an idle engine.
func New(opts Options) *Engine {
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	start := opts.StartSeconds
	if start <= 0 {
		start = DefaultStartSeconds
	}
	if start > MaxSeconds {
		start = MaxSeconds
	}
	a := opts.Arena
	if a.ID == 0 {
		a = arena.First()
	}
	return &Engine{
		gen:   chord.NewGeneratorWithRand(rnd),
		rnd:   rnd,
		clock: clock,
		arena: a,
		watch: opts.Watch,
		start: start,
	}
}

// Start moves an idle engine to Playing with a fresh level 1 state.
func (e *Engine) Start() bool {
	if e.phase != PhaseIdle || e.ended.Load() {
		return false
	}
	e.state = State{
		Level:         1,
		HP:            MaxHP,
		TimeRemaining: e.start,
		Pool:          e.gen.Pool(1),
	}
	e.phase = PhasePlaying
	e.startedAt = e.clock.Now()
	e.present()
	return true
}

// Submit evaluates an answer against the current chord.
// Outside Playing, or while suspended, it is a no-op.
func (e *Engine) Submit(a Answer) Result {
	if e.phase != PhasePlaying || e.suspended {
		return Result{}
	}
	e.pending = 0

	current := e.Current()
	if a.Name != current.Name {
		return e.miss(current, a)
	}
	return e.hit(current, a)
}

func (e *Engine) hit(current chord.Chord, a Answer) Result {
	s := &e.state
	level := s.Level
	points := Points(level)
	xp := LevelXP(level) * e.arena.Multiplier()

	res := Result{Accepted: true, Correct: true}

	s.Combo++
	if s.Combo > s.BestCombo {
		s.BestCombo = s.Combo
	}
	s.TimeRemaining = min(float64(MaxSeconds), s.TimeRemaining+float64(TimeBonus(level)))

	if s.SpecialCharged {
		xp *= 2
		s.SpecialCharged = false
		res.Events = append(res.Events, Event{Kind: EventSpecialUsed, XP: xp})
	} else if s.Combo%SpecialEvery == 0 {
		s.SpecialCharged = true
		res.Events = append(res.Events, Event{Kind: EventSpecialCharged})
	}

	s.Score += points
	s.SessionXP += xp
	s.Correct++
	s.Feedback = Feedback{Kind: FeedbackCorrect, Expected: current.Name, Slot: a.Slot}
	e.count(current)

	res.Points = points
	res.XP = xp
	res.Events = append([]Event{{Kind: EventCorrect, Points: points, XP: xp, Level: level}}, res.Events...)

	s.HitsInLevel++
	if s.HitsInLevel >= HitsPerLevel && s.Level < chord.MaxLevel {
		s.Level++
		s.HitsInLevel = 0
		s.Pool = e.gen.Pool(s.Level)
		s.Cursor = 0
		e.present()
		res.Events = append(res.Events, Event{Kind: EventLevelUp, Level: s.Level})
	} else {
		e.step()
	}

	if e.arena.Interferes() {
		res.Events = append(res.Events, e.interfere()...)
	}

	if !e.defeated && e.watch.Defeated(s.SessionXP) {
		e.defeated = true
		e.bosses++
		e.Suspend()
		res.Events = append(res.Events, Event{Kind: EventBossDefeated, XP: s.SessionXP})
	}
	return res
}

func (e *Engine) miss(current chord.Chord, a Answer) Result {
	s := &e.state
	s.Combo = 0
	s.SpecialCharged = false
	s.Wrong++
	e.perfectRun = 0
	s.HP = max(0, s.HP-MissDamage)
	s.Feedback = Feedback{Kind: FeedbackWrong, Expected: current.Name, Slot: a.Slot}

	res := Result{Accepted: true}
	res.Events = append(res.Events,
		Event{Kind: EventWrong},
		Event{Kind: EventDamage, Damage: MissDamage},
	)
	if s.HP == 0 {
		if e.End(EndHPDepleted) {
			res.Events = append(res.Events, Event{Kind: EventEnded, Reason: EndHPDepleted})
		}
		return res
	}
	e.lastToken++
	e.pending = e.lastToken
	res.Token = e.pending
	return res
}

// count updates mission counters for a correct answer.
func (e *Engine) count(c chord.Chord) {
	s := &e.state
	if c.Flat() {
		s.Counters.FlatCount++
	}
	if c.Sharp() {
		s.Counters.SharpCount++
	}
	if c.Minor() {
		s.Counters.MinorCount++
	}
	if e.clock.Now().Sub(e.shownAt) <= PerfectWindow {
		e.perfectRun++
	} else {
		e.perfectRun = 0
	}
	s.Counters.PerfectRun = max(s.Counters.PerfectRun, e.perfectRun)
	s.Counters.MaxCombo = s.BestCombo
	s.Counters.SessionXP = s.SessionXP
}

// Advance performs the deferred move to the next chord after a miss.
// It only succeeds for the most recent outstanding token.
func (e *Engine) Advance(t Token) bool {
	if e.phase != PhasePlaying || e.suspended || t == 0 || t != e.pending {
		return false
	}
	e.pending = 0
	e.state.Feedback = Feedback{}
	e.step()
	return true
}

// Pending returns the outstanding deferred-advance token.
func (e *Engine) Pending() Token {
	return e.pending
}

// step moves the cursor, reshuffling the pool once it is exhausted.
func (e *Engine) step() {
	s := &e.state
	s.Cursor++
	if s.Cursor >= len(s.Pool) {
		s.Pool = e.gen.Pool(s.Level)
		s.Cursor = 0
	}
	e.present()
}

// present regenerates options for the current chord and restarts the perfect window.
func (e *Engine) present() {
	e.state.Options = e.gen.Options(e.Current())
	e.shownAt = e.clock.Now()
}

func (e *Engine) interfere() []Event {
	var out []Event
	s := &e.state
	if len(s.Pool) > 1 && e.rnd.Float64() < JumpChance {
		current := s.Pool[s.Cursor].Symbol
		for _, j := range e.rnd.Perm(len(s.Pool)) {
			if s.Pool[j].Symbol != current {
				s.Cursor = j
				e.present()
				out = append(out, Event{Kind: EventInterference, Interference: InterferenceJump})
				break
			}
		}
	}
	if e.rnd.Float64() < ShuffleChance {
		e.gen.Shuffle(s.Options)
		out = append(out, Event{Kind: EventInterference, Interference: InterferenceShuffle})
	}
	return out
}

// Tick counts down the timer and ends the session at zero.
func (e *Engine) Tick(elapsed float64) []Event {
	if e.phase != PhasePlaying || e.suspended || elapsed <= 0 {
		return nil
	}
	e.state.TimeRemaining -= elapsed
	if e.state.TimeRemaining > 0 {
		return nil
	}
	e.state.TimeRemaining = 0
	if e.End(EndTimeUp) {
		return []Event{{Kind: EventEnded, Reason: EndTimeUp}}
	}
	return nil
}

// Counterattack applies boss damage after the cadence passed without a correct answer.
func (e *Engine) Counterattack() []Event {
	if e.phase != PhasePlaying || e.suspended {
		return nil
	}
	dmg := e.arena.Damage()
	e.state.HP = max(0, e.state.HP-dmg)
	events := []Event{{Kind: EventDamage, Damage: dmg}}
	if e.state.HP == 0 && e.End(EndHPDepleted) {
		events = append(events, Event{Kind: EventEnded, Reason: EndHPDepleted})
	}
	return events
}

// End transitions to Ended exactly once and cancels any deferred advance.
func (e *Engine) End(reason EndReason) bool {
	if !e.ended.CompareAndSwap(false, true) {
		return false
	}
	e.pending = 0
	e.reason = reason
	e.endedAt = e.clock.Now()
	if e.startedAt.IsZero() {
		e.startedAt = e.endedAt
	}
	e.phase = PhaseEnded
	return true
}

// Suspend freezes timers and input while an interstitial is shown.
func (e *Engine) Suspend() {
	if e.suspended {
		return
	}
	e.suspended = true
	e.suspendedAt = e.clock.Now()
}

// Resume continues play; time spent suspended does not count against the perfect window.
func (e *Engine) Resume() {
	if !e.suspended {
		return
	}
	e.suspended = false
	e.shownAt = e.shownAt.Add(e.clock.Now().Sub(e.suspendedAt))
}

// Suspended reports whether play is frozen.
func (e *Engine) Suspended() bool {
	return e.suspended
}

// EnterArena switches the arena mid-session, typically after a boss defeat.
func (e *Engine) EnterArena(a arena.Arena, w arena.BossWatch) {
	e.arena = a
	e.watch = w
	e.defeated = false
}

// Arena returns the arena being fought.
func (e *Engine) Arena() arena.Arena {
	return e.arena
}

// Watch returns the active boss watch.
func (e *Engine) Watch() arena.BossWatch {
	return e.watch
}

// Phase returns the lifecycle phase.
func (e *Engine) Phase() Phase {
	return e.phase
}

// State returns a copy of the session state.
func (e *Engine) State() State {
	return e.state
}

// Current returns the chord to be named.
func (e *Engine) Current() chord.Chord {
	s := e.state
	if len(s.Pool) == 0 {
		return chord.Chord{}
	}
	return s.Pool[s.Cursor]
}

// Summary returns the outcome so far; final once the engine has ended.
func (e *Engine) Summary() Summary {
	s := e.state
	return Summary{
		StartedAt:      e.startedAt,
		EndedAt:        e.endedAt,
		ArenaID:        e.arena.ID,
		Score:          s.Score,
		Level:          s.Level,
		XP:             s.SessionXP,
		Correct:        s.Correct,
		Wrong:          s.Wrong,
		MaxCombo:       s.BestCombo,
		Reason:         e.reason,
		BossesDefeated: e.bosses,
		Counters:       s.Counters,
	}
}
