package statsui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/chordarena/internal/model"
)

type fakeLister struct {
	sessions []model.SessionAggregate
	err      error
	last     model.StatsConfig
}

func (f *fakeLister) ListSessions(_ context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	f.last = cfg
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions, nil
}

func sampleSessions() []model.SessionAggregate {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	out := make([]model.SessionAggregate, 0, 4)
	for i := 0; i < 4; i++ {
		out = append(out, model.SessionAggregate{
			SessionID:  int64(i + 1),
			EndedAt:    base.Add(time.Duration(i) * time.Hour),
			ArenaID:    1 + i%2,
			Score:      50 * (i + 1),
			Level:      2,
			XP:         50 * (i + 1),
			Correct:    10,
			Wrong:      2,
			MaxCombo:   5 + i,
			DurationMs: 60000,
		})
	}
	return out
}

func sized(m *Model) *Model {
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestOverviewShowsCards(t *testing.T) {
	m := sized(NewModel(&fakeLister{sessions: sampleSessions()}, model.StatsConfig{CurveWindow: 2}))
	view := m.View()
	for _, want := range []string{"Overview", "Best Score", "200", "window=2"} {
		if !strings.Contains(view, want) {
			t.Fatalf("overview missing %q:\n%s", want, view)
		}
	}
}

func TestTabsRenderTables(t *testing.T) {
	m := sized(NewModel(&fakeLister{sessions: sampleSessions()}, model.StatsConfig{CurveWindow: 2}))

	m.Update(key("right"))
	if m.active != tabArenas || !strings.Contains(m.View(), "The Practice Room") {
		t.Fatalf("arena tab not rendered:\n%s", m.View())
	}
	m.Update(key("right"))
	if m.active != tabHistory || !strings.Contains(m.View(), "2026-03-01") {
		t.Fatalf("history tab not rendered:\n%s", m.View())
	}
	m.Update(key("right"))
	if m.active != tabOverview {
		t.Fatalf("tabs should wrap, got %d", m.active)
	}
	m.Update(key("left"))
	if m.active != tabHistory {
		t.Fatalf("left should wrap to history, got %d", m.active)
	}
}

func TestHistoryRowsNewestFirst(t *testing.T) {
	rows := historyRows(sampleSessions())
	if len(rows) != 4 || rows[0][2] != "200" || rows[3][2] != "50" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestFilterForm(t *testing.T) {
	lister := &fakeLister{sessions: sampleSessions()}
	m := sized(NewModel(lister, model.StatsConfig{DeviceID: "dev-1", CurveWindow: 20}))

	m.Update(key("/"))
	if m.form == nil {
		t.Fatalf("expected the settings form")
	}
	m.form.fields[0].input.SetValue("not a date")
	m.Update(key("enter"))
	if m.form == nil || m.form.err == "" {
		t.Fatalf("invalid date accepted")
	}

	m.form.fields[0].input.SetValue("2026-03-01")
	m.form.fields[1].input.SetValue("2")
	m.form.fields[2].input.SetValue("5")
	m.Update(key("enter"))
	if m.form != nil {
		t.Fatalf("filter not applied: %s", m.form.err)
	}
	if lister.last.Last != 2 || lister.last.CurveWindow != 5 || lister.last.Since == nil || lister.last.DeviceID != "dev-1" {
		t.Fatalf("unexpected query %+v", lister.last)
	}

	m.Update(key("/"))
	m.Update(key("esc"))
	if m.form != nil {
		t.Fatalf("esc should close the form")
	}
}

func TestCurveWindowKeys(t *testing.T) {
	m := sized(NewModel(&fakeLister{}, model.StatsConfig{CurveWindow: 7}))
	m.Update(key("="))
	if m.cfg.CurveWindow != 10 {
		t.Fatalf("expected 10, got %d", m.cfg.CurveWindow)
	}
	m.Update(key("-"))
	m.Update(key("-"))
	if m.cfg.CurveWindow != 1 {
		t.Fatalf("expected 1, got %d", m.cfg.CurveWindow)
	}
}

func TestStepWindow(t *testing.T) {
	cases := []struct{ n, dir, want int }{
		{0, 1, 5}, {7, 1, 10}, {10, 1, 15},
		{10, -1, 5}, {7, -1, 5}, {5, -1, 1}, {1, -1, 1},
	}
	for _, c := range cases {
		if got := stepWindow(c.n, c.dir); got != c.want {
			t.Fatalf("stepWindow(%d, %d) = %d, want %d", c.n, c.dir, got, c.want)
		}
	}
}

func TestLoadErrorShown(t *testing.T) {
	m := sized(NewModel(&fakeLister{err: errors.New("db locked")}, model.StatsConfig{}))
	view := m.View()
	if !strings.Contains(view, "Failed to load stats.") || !strings.Contains(view, "db locked") {
		t.Fatalf("error not shown:\n%s", view)
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(&fakeLister{}, model.StatsConfig{})
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected QuitMsg")
	}
}
