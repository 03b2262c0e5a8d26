package store

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/chordarena/internal/backend"
	"github.com/verte-zerg/chordarena/internal/mission"
	"github.com/verte-zerg/chordarena/internal/model"
)

func openTestStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chordarena.db")
	st, err := Open(path,
		WithSalt("test-salt"),
		WithRand(rand.New(rand.NewSource(3))),
		WithNow(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return st
}

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestProfileRoundTrip(t *testing.T) {
	st := openTestStore(t, testNow)
	ctx := context.Background()

	p, err := st.LoadProfile(ctx, "dev-1")
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil profile, got %+v", p)
	}

	want := model.NewProfile("dev-1")
	want.TotalXP = 1200
	want.HighScore = 340
	want.GamesPlayed = 4
	want = want.MarkSeen("arena-1-intro")
	if err := st.SaveProfile(ctx, "dev-1", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.LoadProfile(ctx, "dev-1")
	if err != nil || got == nil {
		t.Fatalf("load: %v %v", got, err)
	}
	if got.TotalXP != 1200 || got.HighScore != 340 || got.GamesPlayed != 4 || !got.HasSeen("arena-1-intro") {
		t.Fatalf("unexpected profile %+v", got)
	}
}

func TestSaveProfileKeepsUnlockAndCoins(t *testing.T) {
	st := openTestStore(t, testNow)
	ctx := context.Background()
	p := model.NewProfile("dev-1")
	p.Coins = 30
	if err := st.SaveProfile(ctx, "dev-1", p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.UnlockNextArena(ctx, "dev-1", 1); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	stale := p
	stale.Coins = 0
	stale.TotalXP = 50
	if err := st.SaveProfile(ctx, "dev-1", stale); err != nil {
		t.Fatalf("save stale: %v", err)
	}
	got, err := st.LoadProfile(ctx, "dev-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.UnlockedArena != 2 || got.Coins != 30 || got.TotalXP != 50 {
		t.Fatalf("unexpected profile %+v", got)
	}
}

func TestUnlockNextArena(t *testing.T) {
	st := openTestStore(t, testNow)
	ctx := context.Background()
	if err := st.UnlockNextArena(ctx, "fresh", 1); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	p, err := st.LoadProfile(ctx, "fresh")
	if err != nil || p == nil || p.UnlockedArena != 2 {
		t.Fatalf("expected arena 2 unlocked, got %+v %v", p, err)
	}
	if err := st.UnlockNextArena(ctx, "fresh", 5); err != nil {
		t.Fatalf("unlock past last arena: %v", err)
	}
	if err := st.UnlockNextArena(ctx, "fresh", 99); err == nil {
		t.Fatalf("expected error for unknown arena")
	}
}

func TestRecordSessionResult(t *testing.T) {
	st := openTestStore(t, testNow)
	ctx := context.Background()
	base := model.SessionResult{
		StartedAt: testNow,
		EndedAt:   testNow.Add(time.Minute),
		ArenaID:   1,
		Score:     100,
		Level:     2,
		XP:        100,
		Correct:   10,
	}
	ack, err := st.RecordSessionResult(ctx, "dev-1", base)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !ack.Accepted || ack.Clamped || ack.Rank != 1 || ack.SessionID == 0 {
		t.Fatalf("unexpected ack %+v", ack)
	}

	better := base
	better.Score = 300
	better.XP = 300
	better.Correct = 20
	ack, err = st.RecordSessionResult(ctx, "dev-2", better)
	if err != nil || ack.Rank != 1 {
		t.Fatalf("expected rank 1, got %+v %v", ack, err)
	}

	cheat := base
	cheat.Correct = 1
	cheat.Score = 5000
	cheat.XP = 99999
	ack, err = st.RecordSessionResult(ctx, "dev-1", cheat)
	if err != nil {
		t.Fatalf("record cheat: %v", err)
	}
	if !ack.Clamped || ack.Score != 70 || ack.XP != maxAnswerXP() {
		t.Fatalf("expected clamped ack, got %+v", ack)
	}

	bad := base
	bad.EndedAt = testNow.Add(-time.Second)
	ack, err = st.RecordSessionResult(ctx, "dev-1", bad)
	if err != nil || ack.Accepted {
		t.Fatalf("expected rejection, got %+v %v", ack, err)
	}

	sessions, err := st.ListSessions(ctx, model.StatsConfig{DeviceID: "dev-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 stored sessions for dev-1, got %d", len(sessions))
	}
	last, err := st.ListSessions(ctx, model.StatsConfig{Last: 1})
	if err != nil || len(last) != 1 {
		t.Fatalf("expected 1 session with Last, got %d %v", len(last), err)
	}
}

func TestFetchDailyMissionsIsStable(t *testing.T) {
	st := openTestStore(t, testNow)
	ctx := context.Background()
	first, err := st.FetchDailyMissions(ctx, "dev-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(first) != mission.PerDay {
		t.Fatalf("expected %d missions, got %d", mission.PerDay, len(first))
	}
	second, err := st.FetchDailyMissions(ctx, "dev-1")
	if err != nil {
		t.Fatalf("fetch again: %v", err)
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Goal != second[i].Goal {
			t.Fatalf("missions changed between fetches: %+v vs %+v", first[i], second[i])
		}
		if first[i].Date != "2026-03-14" {
			t.Fatalf("unexpected date %q", first[i].Date)
		}
	}
}

func TestMissionProgressAndClaim(t *testing.T) {
	st := openTestStore(t, testNow)
	ctx := context.Background()
	missions, err := st.FetchDailyMissions(ctx, "dev-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	m := missions[0]

	if _, err := st.ClaimMissionReward(ctx, m.ID); !errors.Is(err, backend.ErrNotCompleted) {
		t.Fatalf("expected ErrNotCompleted, got %v", err)
	}

	updated, err := st.UpdateMissionProgress(ctx, m.ID, m.Target-1, true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Completed {
		t.Fatalf("completion must follow the target, got %+v", updated)
	}
	updated, err = st.UpdateMissionProgress(ctx, m.ID, m.Target, true)
	if err != nil || !updated.Completed {
		t.Fatalf("expected completed mission, got %+v %v", updated, err)
	}

	reward, err := st.ClaimMissionReward(ctx, m.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if reward.Type != m.RewardType {
		t.Fatalf("reward type %q, want %q", reward.Type, m.RewardType)
	}
	if _, err := st.ClaimMissionReward(ctx, m.ID); !errors.Is(err, backend.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	if reward.Type == model.RewardCoins {
		p, err := st.LoadProfile(ctx, "dev-1")
		if err != nil || p == nil || p.Coins != reward.Amount {
			t.Fatalf("coins not credited: %+v %v", p, err)
		}
	}

	if _, err := st.UpdateMissionProgress(ctx, 9999, 1, false); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFinishSessionAgainstStore(t *testing.T) {
	st := openTestStore(t, testNow)
	ctx := context.Background()
	p := model.NewProfile("dev-1")
	p.TotalXP = 400
	p.GamesPlayed = 1
	r := model.SessionResult{StartedAt: testNow, EndedAt: testNow.Add(time.Minute), Score: 200, XP: 200, Level: 2, Correct: 20}
	c := mission.Counters{FlatCount: 40, SharpCount: 40, MinorCount: 40, MaxCombo: 40, PerfectRun: 40, SessionXP: 5000}

	out, err := backend.FinishSession(ctx, st, p.DeviceID, &p, r, c)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !out.Ack.Accepted || len(out.Missions) != mission.PerDay {
		t.Fatalf("unexpected outcome %+v", out)
	}
	for _, m := range out.Missions {
		if m.Goal == model.GoalGamesPlayed {
			if m.Current != 1 {
				t.Fatalf("games played progress %d, want 1", m.Current)
			}
			continue
		}
		if !m.Completed {
			t.Fatalf("mission %s not completed: %+v", m.Goal, m)
		}
	}
	saved, err := st.LoadProfile(ctx, "dev-1")
	if err != nil || saved == nil || saved.TotalXP != 400 {
		t.Fatalf("profile not saved: %+v %v", saved, err)
	}
}

func TestFinishSessionWithoutProfileKeepsStoredStats(t *testing.T) {
	st := openTestStore(t, testNow)
	ctx := context.Background()
	p := model.NewProfile("dev-1")
	p.TotalXP = 40000
	p.HighScore = 9000
	p.GamesPlayed = 120
	if err := st.SaveProfile(ctx, p.DeviceID, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	r := model.SessionResult{StartedAt: testNow, EndedAt: testNow.Add(time.Minute), Score: 30, XP: 30, Level: 1, Correct: 3}
	out, err := backend.FinishSession(ctx, st, "dev-1", nil, r, mission.Counters{})
	if err != nil || !out.Ack.Accepted {
		t.Fatalf("finish: %+v %v", out, err)
	}
	saved, err := st.LoadProfile(ctx, "dev-1")
	if err != nil || saved == nil {
		t.Fatalf("load: %+v %v", saved, err)
	}
	if saved.TotalXP != 40000 || saved.HighScore != 9000 || saved.GamesPlayed != 120 {
		t.Fatalf("stored profile changed: %+v", saved)
	}
}
