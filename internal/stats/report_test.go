package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/chordarena/internal/model"
	"github.com/verte-zerg/chordarena/internal/store"
)

func TestBuildReport(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "chordarena.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		ack, err := st.RecordSessionResult(ctx, "dev", model.SessionResult{
			StartedAt:  start,
			EndedAt:    start.Add(30 * time.Second),
			ArenaID:    1 + i%2,
			Score:      100 * (i + 1),
			XP:         100 * (i + 1),
			Level:      2,
			Correct:    30,
			Wrong:      2,
			DurationMs: 30000,
		})
		if err != nil {
			t.Fatalf("record session: %v", err)
		}
		ids = append(ids, ack.SessionID)
	}

	report, err := BuildReport(ctx, st, model.StatsConfig{DeviceID: "dev", Last: 2, CurveWindow: 1})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].SessionID != ids[1] || report.Sessions[1].SessionID != ids[2] {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if len(report.Window) != 1 || report.Window[0].SessionID != ids[2] {
		t.Fatalf("unexpected window %+v", report.Window)
	}
	if len(report.Arenas) != 2 {
		t.Fatalf("expected 2 arenas, got %+v", report.Arenas)
	}
}

func TestByArenaOrdersByPlays(t *testing.T) {
	rows := ByArena([]model.SessionAggregate{
		{ArenaID: 2, Score: 10},
		{ArenaID: 1, Score: 40, Correct: 3, Wrong: 1},
		{ArenaID: 1, Score: 20},
	})
	if len(rows) != 2 || rows[0].ArenaID != 1 || rows[0].Sessions != 2 || rows[0].BestScore != 40 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestSessionMetrics(t *testing.T) {
	acc, apm := SessionMetrics(30, 10, 60000)
	if acc != 0.75 || apm != 40 {
		t.Fatalf("acc=%v apm=%v", acc, apm)
	}
	acc, apm = SessionMetrics(0, 0, 0)
	if acc != 0 || apm != 0 {
		t.Fatalf("empty session acc=%v apm=%v", acc, apm)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MovingAverage=%v, want %v", got, want)
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 9}); got != " @" {
		t.Fatalf("Sparkline=%q", got)
	}
	if got := Sparkline([]float64{3, 3, 3}); got != "+++" {
		t.Fatalf("flat Sparkline=%q", got)
	}
}

func TestRenderSummaryAndHistory(t *testing.T) {
	sessions := []model.SessionAggregate{
		{EndedAt: time.Unix(0, 0), ArenaID: 1, Score: 100, XP: 100, Correct: 9, Wrong: 1, MaxCombo: 7, DurationMs: 60000},
		{EndedAt: time.Unix(60, 0), ArenaID: 2, Score: 300, XP: 300, Correct: 10, Wrong: 0, MaxCombo: 10, DurationMs: 60000},
	}
	var buf bytes.Buffer
	if err := RenderSummary(&buf, sessions); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if err := RenderHistory(&buf, sessions); err != nil {
		t.Fatalf("history: %v", err)
	}
	if err := RenderArenas(&buf, ByArena(sessions)); err != nil {
		t.Fatalf("arenas: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sessions: 2", "Best Score: 300", "Best Combo: 10", "Accuracy: 95.00%", "History", "Arenas"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := RenderSummary(&buf, nil); err != nil || !strings.Contains(buf.String(), "No sessions") {
		t.Fatalf("empty summary: %q %v", buf.String(), err)
	}
}
