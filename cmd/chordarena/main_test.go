package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/chordarena/internal/config"
	"github.com/verte-zerg/chordarena/internal/model"
)

func TestDefaultConfigTemplateParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if cfg.Play.Device != nil || cfg.Server.Addr != nil {
		t.Fatalf("template must not set values: %+v", cfg)
	}
}

func TestValidateConfig(t *testing.T) {
	ok := model.Config{DeviceID: "d", StartSeconds: 60}
	if err := validateConfig(ok); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, bad := range []model.Config{
		{DeviceID: "d", StartSeconds: 0},
		{DeviceID: "d", StartSeconds: 601},
		{StartSeconds: 60},
	} {
		if err := validateConfig(bad); err == nil {
			t.Fatalf("expected error for %+v", bad)
		}
	}
}

func TestRenderMissions(t *testing.T) {
	var buf bytes.Buffer
	if err := renderMissions(&buf, nil); err != nil || !strings.Contains(buf.String(), "No missions") {
		t.Fatalf("unexpected empty output %q %v", buf.String(), err)
	}
	buf.Reset()
	missions := []model.Mission{
		{ID: 1, Title: "Name 5 flat chords", Current: 7, Target: 5, Completed: true},
		{ID: 2, Title: "Reach a 10 combo", Current: 3, Target: 10},
		{ID: 3, Title: "Play 3 sessions", Current: 3, Target: 3, Completed: true, Claimed: true},
	}
	if err := renderMissions(&buf, missions); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"5/5  ready to claim", "3/10  in progress", "3/3  claimed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatReward(t *testing.T) {
	if got := formatReward(model.Reward{Type: model.RewardCoins, Amount: 50, Rarity: "common"}); got != "Reward: 50 coins (common)" {
		t.Fatalf("unexpected coin reward %q", got)
	}
	if got := formatReward(model.Reward{Type: model.RewardCard, Rarity: "epic"}); got != "Reward: epic card" {
		t.Fatalf("unexpected card reward %q", got)
	}
}
