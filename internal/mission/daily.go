package mission

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
	"time"

	"github.com/verte-zerg/chordarena/internal/model"
)

// PerDay is the number of missions assigned each day.
const PerDay = 3

// Template describes a mission that can be assigned.
type Template struct {
	Goal         string
	Title        string
	Target       int
	RewardType   string
	RewardAmount int
}

// Templates is the pool daily missions are drawn from.
var Templates = []Template{
	{Goal: model.GoalFlatCount, Title: "Name 15 flat chords", Target: 15, RewardType: model.RewardCoins, RewardAmount: 50},
	{Goal: model.GoalSharpCount, Title: "Name 15 sharp chords", Target: 15, RewardType: model.RewardCoins, RewardAmount: 50},
	{Goal: model.GoalMinorCount, Title: "Name 25 minor chords", Target: 25, RewardType: model.RewardCoins, RewardAmount: 60},
	{Goal: model.GoalMaxCombo, Title: "Reach a 20 combo", Target: 20, RewardType: model.RewardCard},
	{Goal: model.GoalPerfectRun, Title: "Answer 8 in a row within 1.5s", Target: 8, RewardType: model.RewardCard},
	{Goal: model.GoalSessionXP, Title: "Earn 1500 XP in one session", Target: 1500, RewardType: model.RewardCoins, RewardAmount: 80},
	{Goal: model.GoalGamesPlayed, Title: "Play 3 sessions", Target: 3, RewardType: model.RewardCoins, RewardAmount: 30},
}

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Daily picks n distinct templates for a device and day using HMAC(salt, date/device/slot).
func Daily(date time.Time, deviceID, salt string, n int) []Template {
	if n > len(Templates) {
		n = len(Templates)
	}
	used := make(map[int]bool, n)
	out := make([]Template, 0, n)
	dk := DateKey(date)
	for slot := 0; len(out) < n; slot++ {
		idx := index(salt, fmt.Sprintf("%s/%s/%d", dk, deviceID, slot), len(Templates))
		for used[idx] {
			idx = (idx + 1) % len(Templates)
		}
		used[idx] = true
		out = append(out, Templates[idx])
	}
	return out
}

func index(salt, key string, size int) int {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(key))
	sum := h.Sum(nil)
	n := binary.BigEndian.Uint64(sum[:8])
	return int(n % uint64(size))
}

// Card rarities.
const (
	RarityCommon = "common"
	RarityRare   = "rare"
	RarityEpic   = "epic"
)

// RollReward resolves the reward for a claimed mission.
func RollReward(rnd *rand.Rand, m model.Mission) model.Reward {
	if m.RewardType == model.RewardCoins {
		return model.Reward{Type: model.RewardCoins, Amount: m.RewardAmount, Rarity: RarityCommon}
	}
	roll := rnd.Intn(100)
	rarity := RarityCommon
	switch {
	case roll < 5:
		rarity = RarityEpic
	case roll < 30:
		rarity = RarityRare
	}
	return model.Reward{Type: model.RewardCard, Rarity: rarity}
}
