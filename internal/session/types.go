package session

import (
	"time"

	"github.com/verte-zerg/chordarena/internal/chord"
	"github.com/verte-zerg/chordarena/internal/mission"
	"github.com/verte-zerg/chordarena/internal/model"
)

// Phase is the lifecycle position of a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePlaying
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlaying:
		return "playing"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// EndReason records which trigger ended a session.
type EndReason string

const (
	EndTimeUp     EndReason = "time_up"
	EndHPDepleted EndReason = "hp_depleted"
	EndAbandoned  EndReason = "abandoned"
)

// FeedbackKind classifies the last answer.
type FeedbackKind int

const (
	FeedbackNone FeedbackKind = iota
	FeedbackCorrect
	FeedbackWrong
)

// Feedback describes the last answer for display.
type Feedback struct {
	Kind     FeedbackKind
	Expected string
	Slot     int
}

// State is the mutable aggregate of one session.
type State struct {
	Level          int
	Score          int
	HitsInLevel    int
	Combo          int
	BestCombo      int
	Pool           []chord.Chord
	Cursor         int
	Options        []string
	TimeRemaining  float64
	SessionXP      int
	HP             int
	SpecialCharged bool
	Feedback       Feedback
	Counters       mission.Counters
	Correct        int
	Wrong          int
}

// EventKind identifies an engine event.
type EventKind int

const (
	EventCorrect EventKind = iota + 1
	EventWrong
	EventLevelUp
	EventSpecialCharged
	EventSpecialUsed
	EventInterference
	EventBossDefeated
	EventDamage
	EventEnded
)

// Interference kinds.
const (
	InterferenceShuffle = "shuffle"
	InterferenceJump    = "jump"
)

// Event is emitted by engine operations for progression, missions and the UI.
type Event struct {
	Kind         EventKind
	Points       int
	XP           int
	Level        int
	Damage       int
	Interference string
	Reason       EndReason
}

// Answer is a player's selection. Slot is the option position, or -1.
type Answer struct {
	Name string
	Slot int
}

// Token identifies a deferred advance. Zero means none.
type Token uint64

// Result reports the outcome of a submission.
type Result struct {
	Accepted bool
	Correct  bool
	Points   int
	XP       int
	Token    Token
	Events   []Event
}

// Has reports whether the result carries an event of kind k.
func (r Result) Has(k EventKind) bool {
	return hasEvent(r.Events, k)
}

func hasEvent(events []Event, k EventKind) bool {
	for _, ev := range events {
		if ev.Kind == k {
			return true
		}
	}
	return false
}

// Summary is the final outcome of a session.
type Summary struct {
	StartedAt      time.Time
	EndedAt        time.Time
	ArenaID        int
	Score          int
	Level          int
	XP             int
	Correct        int
	Wrong          int
	MaxCombo       int
	Reason         EndReason
	BossesDefeated int
	Counters       mission.Counters
}

// Apply folds the summary into lifetime profile stats.
func (s Summary) Apply(p model.Profile) model.Profile {
	p.TotalXP += s.XP
	if s.Score > p.HighScore {
		p.HighScore = s.Score
	}
	p.GamesPlayed++
	if s.ArenaID > 0 {
		p.LastPlayedArena = s.ArenaID
	}
	p.UpdatedAt = s.EndedAt
	return p
}

// Result converts the summary into a backend submission.
func (s Summary) Result() model.SessionResult {
	return model.SessionResult{
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
		ArenaID:    s.ArenaID,
		Score:      s.Score,
		Level:      s.Level,
		XP:         s.XP,
		Correct:    s.Correct,
		Wrong:      s.Wrong,
		MaxCombo:   s.MaxCombo,
		EndReason:  string(s.Reason),
		DurationMs: s.EndedAt.Sub(s.StartedAt).Milliseconds(),
	}
}
