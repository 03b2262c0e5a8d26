package httpapi

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/chordarena/internal/backend"
	"github.com/verte-zerg/chordarena/internal/model"
	"github.com/verte-zerg/chordarena/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"), store.WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	srv := New(st, []byte("test-secret"), zerolog.New(io.Discard))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		if err := st.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return ts, NewClient(ts.URL, ts.Client())
}

func TestRequireDeviceToken(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/profile")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp2.StatusCode)
	}
}

func TestRegisterAssignsDeviceID(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/v1/devices", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"token"`) {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, body)
	}
}

func TestClientProfileRoundTrip(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	p, err := c.LoadProfile(ctx, "dev-1")
	if err != nil || p != nil {
		t.Fatalf("expected no profile, got %+v %v", p, err)
	}
	want := model.NewProfile("dev-1")
	want.TotalXP = 900
	want.HighScore = 120
	if err := c.SaveProfile(ctx, "dev-1", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := c.LoadProfile(ctx, "dev-1")
	if err != nil || got == nil || got.TotalXP != 900 || got.HighScore != 120 {
		t.Fatalf("unexpected profile %+v %v", got, err)
	}

	if err := c.UnlockNextArena(ctx, "dev-1", 1); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	got, err = c.LoadProfile(ctx, "dev-1")
	if err != nil || got.UnlockedArena != 2 {
		t.Fatalf("unlock not visible: %+v %v", got, err)
	}
}

func TestClientSessionAndMissions(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()
	now := time.Now()

	ack, err := c.RecordSessionResult(ctx, "dev-1", model.SessionResult{
		StartedAt: now.Add(-time.Minute), EndedAt: now, Score: 50, XP: 50, Level: 1, Correct: 5,
	})
	if err != nil || !ack.Accepted || ack.Rank != 1 {
		t.Fatalf("unexpected ack %+v %v", ack, err)
	}

	missions, err := c.FetchDailyMissions(ctx, "dev-1")
	if err != nil || len(missions) == 0 {
		t.Fatalf("fetch missions: %v %v", missions, err)
	}
	m := missions[0]
	if _, err := c.ClaimMissionReward(ctx, m.ID); !errors.Is(err, backend.ErrNotCompleted) {
		t.Fatalf("expected ErrNotCompleted, got %v", err)
	}
	updated, err := c.UpdateMissionProgress(ctx, m.ID, m.Target, true)
	if err != nil || !updated.Completed {
		t.Fatalf("update: %+v %v", updated, err)
	}
	if _, err := c.ClaimMissionReward(ctx, m.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := c.ClaimMissionReward(ctx, m.ID); !errors.Is(err, backend.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	if _, err := c.UpdateMissionProgress(ctx, 4242, 1, false); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMissionCallsNeedARegisteredDevice(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", nil)
	if _, err := c.ClaimMissionReward(context.Background(), 1); err == nil {
		t.Fatalf("expected error without a registered device")
	}
}
