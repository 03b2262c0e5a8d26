// Package model defines shared data structures.
package model

import "time"

// Config defines play settings.
type Config struct {
	DeviceID     string
	StartSeconds int
	Seed         int64
	BackendURL   string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	DeviceID    string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// Profile is the persisted lifetime state of a player.
type Profile struct {
	DeviceID        string    `json:"deviceId"`
	TotalXP         int       `json:"totalXp"`
	Coins           int       `json:"coins"`
	HighScore       int       `json:"highScore"`
	UnlockedArena   int       `json:"unlockedArena"`
	LastPlayedArena int       `json:"lastPlayedArena"`
	SeenStories     []string  `json:"seenStories"`
	GamesPlayed     int       `json:"gamesPlayed"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// NewProfile returns the starting profile for a device.
func NewProfile(deviceID string) Profile {
	return Profile{DeviceID: deviceID, UnlockedArena: 1, LastPlayedArena: 1}
}

// HasSeen reports whether a story id was already shown.
func (p Profile) HasSeen(storyID string) bool {
	for _, id := range p.SeenStories {
		if id == storyID {
			return true
		}
	}
	return false
}

// MarkSeen returns a copy of p with storyID recorded.
func (p Profile) MarkSeen(storyID string) Profile {
	if storyID == "" || p.HasSeen(storyID) {
		return p
	}
	seen := make([]string, 0, len(p.SeenStories)+1)
	seen = append(seen, p.SeenStories...)
	p.SeenStories = append(seen, storyID)
	return p
}

// SessionResult is submitted once a session ends.
type SessionResult struct {
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt"`
	ArenaID    int       `json:"arenaId"`
	Score      int       `json:"score"`
	Level      int       `json:"level"`
	XP         int       `json:"xp"`
	Correct    int       `json:"correct"`
	Wrong      int       `json:"wrong"`
	MaxCombo   int       `json:"maxCombo"`
	EndReason  string    `json:"endReason"`
	DurationMs int64     `json:"durationMs"`
}

// ResultAck is the backend's authoritative answer to a session result.
type ResultAck struct {
	SessionID int64 `json:"sessionId"`
	Accepted  bool  `json:"accepted"`
	Clamped   bool  `json:"clamped"`
	Score     int   `json:"score"`
	XP        int   `json:"xp"`
	Rank      int   `json:"rank"`
}

// SessionAggregate summarizes a stored session for reporting.
type SessionAggregate struct {
	SessionID  int64
	EndedAt    time.Time
	ArenaID    int
	Score      int
	Level      int
	XP         int
	Correct    int
	Wrong      int
	MaxCombo   int
	DurationMs int64
}

// Goal types of daily missions.
const (
	GoalFlatCount   = "flat_count"
	GoalSharpCount  = "sharp_count"
	GoalMinorCount  = "minor_count"
	GoalMaxCombo    = "max_combo"
	GoalPerfectRun  = "perfect_run"
	GoalSessionXP   = "session_xp"
	GoalGamesPlayed = "games_played"
)

// Mission is a daily goal assigned to a device.
type Mission struct {
	ID           int64  `json:"id"`
	DeviceID     string `json:"deviceId"`
	Date         string `json:"date"`
	Goal         string `json:"goal"`
	Title        string `json:"title"`
	Target       int    `json:"target"`
	Current      int    `json:"current"`
	Completed    bool   `json:"completed"`
	Claimed      bool   `json:"claimed"`
	RewardType   string `json:"rewardType"`
	RewardAmount int    `json:"rewardAmount"`
}

// Reward types.
const (
	RewardCoins = "coins"
	RewardCard  = "card"
)

// Reward is issued when a completed mission is claimed.
type Reward struct {
	Type   string `json:"type"`
	Amount int    `json:"amount,omitempty"`
	Rarity string `json:"rarity"`
}
