package mission

import (
	"math/rand"
	"testing"
	"time"

	"github.com/verte-zerg/chordarena/internal/model"
)

func TestProposeByGoalKind(t *testing.T) {
	counters := Counters{FlatCount: 4, SharpCount: 2, MinorCount: 6, MaxCombo: 12, PerfectRun: 3, SessionXP: 900}
	missions := []model.Mission{
		{ID: 1, Goal: model.GoalFlatCount, Current: 10, Target: 15},
		{ID: 2, Goal: model.GoalSharpCount, Current: 14, Target: 15},
		{ID: 3, Goal: model.GoalMinorCount, Current: 0, Target: 25},
		{ID: 4, Goal: model.GoalMaxCombo, Current: 15, Target: 20},
		{ID: 5, Goal: model.GoalPerfectRun, Current: 1, Target: 8},
		{ID: 6, Goal: model.GoalSessionXP, Current: 1200, Target: 1500},
		{ID: 7, Goal: model.GoalGamesPlayed, Current: 2, Target: 3},
		{ID: 8, Goal: model.GoalFlatCount, Current: 15, Target: 15, Completed: true},
		{ID: 9, Goal: "unknown", Current: 0, Target: 1},
	}
	got := Propose(counters, missions)
	want := map[int64]struct {
		value     int
		completed bool
	}{
		1: {14, false},
		2: {16, true},
		3: {6, false},
		4: {15, false},
		5: {3, false},
		6: {1200, false},
		7: {3, true},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d proposals, got %d: %+v", len(want), len(got), got)
	}
	for _, p := range got {
		w, ok := want[p.MissionID]
		if !ok {
			t.Fatalf("unexpected proposal for mission %d", p.MissionID)
		}
		if p.Value != w.value || p.Completed != w.completed {
			t.Fatalf("mission %d: got value=%d completed=%v, want %d %v", p.MissionID, p.Value, p.Completed, w.value, w.completed)
		}
	}
}

func TestProposeGamesPlayedIgnoresPerformance(t *testing.T) {
	got := Propose(Counters{}, []model.Mission{{ID: 1, Goal: model.GoalGamesPlayed, Current: 0, Target: 3}})
	if len(got) != 1 || got[0].Value != 1 || !got[0].Changed() {
		t.Fatalf("unexpected proposal: %+v", got)
	}
}

func TestDailyIsDeterministicAndDistinct(t *testing.T) {
	day := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	a := Daily(day, "device-a", "salt", PerDay)
	b := Daily(day, "device-a", "salt", PerDay)
	if len(a) != PerDay {
		t.Fatalf("expected %d templates, got %d", PerDay, len(a))
	}
	seen := map[string]bool{}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("daily selection not deterministic at %d", i)
		}
		if seen[a[i].Goal] {
			t.Fatalf("duplicate goal %q", a[i].Goal)
		}
		seen[a[i].Goal] = true
	}
	if got := Daily(day, "x", "salt", 100); len(got) != len(Templates) {
		t.Fatalf("expected clamp to %d, got %d", len(Templates), len(got))
	}
}

func TestRollReward(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	coins := RollReward(rnd, model.Mission{RewardType: model.RewardCoins, RewardAmount: 50})
	if coins.Type != model.RewardCoins || coins.Amount != 50 {
		t.Fatalf("unexpected coin reward %+v", coins)
	}
	for i := 0; i < 50; i++ {
		card := RollReward(rnd, model.Mission{RewardType: model.RewardCard})
		switch card.Rarity {
		case RarityCommon, RarityRare, RarityEpic:
		default:
			t.Fatalf("unexpected rarity %q", card.Rarity)
		}
	}
}
